package eventlog

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	log, err := Open(fs, "/events.jsonl")
	require.NoError(t, err)

	log.Record(Entry{Time: time.Unix(1, 0).UTC(), Source: "ls", Status: "completed", DurationMS: 3})
	log.Record(Entry{Time: time.Unix(2, 0).UTC(), Source: "boom", Status: "failed", FailedStage: 1, Errors: []string{"stage 1: exit status 2"}})
	require.NoError(t, log.Close())

	f, err := fs.Open("/events.jsonl")
	require.NoError(t, err)
	defer f.Close()

	var entries []*Entry
	require.NoError(t, Read(f, func(e *Entry) { entries = append(entries, e) }))
	require.Len(t, entries, 2)
	assert.Equal(t, "ls", entries[0].Source)
	assert.Equal(t, "completed", entries[0].Status)
	assert.Equal(t, 1, entries[1].FailedStage)
	assert.Len(t, entries[1].Errors, 1)
}

func TestNilLogDiscards(t *testing.T) {
	var log *Log
	log.Record(Entry{Source: "ls"})
	assert.NoError(t, log.Close())
}
