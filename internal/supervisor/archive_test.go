// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/paybridge/internal/testlib"
	"github.com/mattermost/paybridge/model"
)

type fakeArchiveStore struct {
	system  map[string]string
	records []*model.CallbackRecord
}

func (s *fakeArchiveStore) GetSystemValue(key string) (string, error) {
	return s.system[key], nil
}

func (s *fakeArchiveStore) SetSystemValue(key, value string) error {
	s.system[key] = value
	return nil
}

func (s *fakeArchiveStore) GetCallbackRecordsAfter(sequence int64, limit int) ([]*model.CallbackRecord, error) {
	var records []*model.CallbackRecord
	for _, record := range s.records {
		if record.Sequence > sequence && len(records) < limit {
			records = append(records, record)
		}
	}
	return records, nil
}

type fakeArchiveWriter struct {
	objects map[string][]byte
	names   []string
	err     error
}

func (w *fakeArchiveWriter) UploadCallbackArchive(ctx context.Context, name string, body io.Reader) error {
	if w.err != nil {
		return w.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	w.objects[name] = data
	w.names = append(w.names, name)
	return nil
}

func decodeArchive(t *testing.T, data []byte) []*model.CallbackRecord {
	var records []*model.CallbackRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var record model.CallbackRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, &record)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestArchiveSupervisor(t *testing.T) {
	store := &fakeArchiveStore{system: map[string]string{}}
	for i := int64(1); i <= 5; i++ {
		store.records = append(store.records, &model.CallbackRecord{
			ID:            model.NewID(),
			Sequence:      i,
			Channel:       model.ChannelSTK,
			CorrelationID: "ws_CO_1",
			RawPayload:    []byte(`{"Body":{}}`),
		})
	}
	writer := &fakeArchiveWriter{objects: map[string][]byte{}}
	supervisor := NewArchiveSupervisor(store, writer, ArchiveSupervisorOptions{Batch: 2}, testlib.MakeLogger(t))

	require.NoError(t, supervisor.supervise())
	assert.Equal(t, []string{archiveName(1, 2), archiveName(3, 4), archiveName(5, 5)}, writer.names)
	assert.Equal(t, "5", store.system[ArchiveCursorKey])

	records := decodeArchive(t, writer.objects[archiveName(3, 4)])
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0].Sequence)
	assert.Equal(t, []byte(`{"Body":{}}`), records[0].RawPayload)

	t.Run("nothing new", func(t *testing.T) {
		require.NoError(t, supervisor.supervise())
		assert.Len(t, writer.names, 3)
	})

	t.Run("failed upload keeps the cursor", func(t *testing.T) {
		store.records = append(store.records, &model.CallbackRecord{ID: model.NewID(), Sequence: 6, Channel: model.ChannelB2CResult})
		writer.err = errors.New("access denied")

		require.Error(t, supervisor.supervise())
		assert.Equal(t, "5", store.system[ArchiveCursorKey])

		writer.err = nil
		require.NoError(t, supervisor.supervise())
		assert.Equal(t, "6", store.system[ArchiveCursorKey])
		assert.Equal(t, archiveName(6, 6), writer.names[len(writer.names)-1])
	})

	t.Run("corrupt cursor", func(t *testing.T) {
		store.system[ArchiveCursorKey] = "six"
		require.Error(t, supervisor.supervise())
	})
}

func TestArchiveSupervisorSequenceGaps(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	recent := model.MillisFromTime(now.Add(-10 * time.Second))
	old := model.MillisFromTime(now.Add(-5 * time.Minute))

	newRecord := func(sequence, receivedAt int64) *model.CallbackRecord {
		return &model.CallbackRecord{
			ID:         model.NewID(),
			Sequence:   sequence,
			Channel:    model.ChannelSTK,
			ReceivedAt: receivedAt,
			RawPayload: []byte(`{"Body":{}}`),
		}
	}

	store := &fakeArchiveStore{system: map[string]string{}}
	store.records = []*model.CallbackRecord{
		newRecord(1, recent),
		newRecord(2, recent),
		newRecord(4, recent),
	}
	writer := &fakeArchiveWriter{objects: map[string][]byte{}}
	supervisor := NewArchiveSupervisor(store, writer, ArchiveSupervisorOptions{
		Batch: 10,
		Now:   func() time.Time { return now },
	}, testlib.MakeLogger(t))

	t.Run("stops before a recent gap", func(t *testing.T) {
		require.NoError(t, supervisor.supervise())
		assert.Equal(t, []string{archiveName(1, 2)}, writer.names)
		assert.Equal(t, "2", store.system[ArchiveCursorKey])
	})

	t.Run("late commit fills the gap", func(t *testing.T) {
		store.records = []*model.CallbackRecord{
			store.records[0],
			store.records[1],
			newRecord(3, recent),
			store.records[2],
		}

		require.NoError(t, supervisor.supervise())
		assert.Equal(t, archiveName(3, 4), writer.names[len(writer.names)-1])
		assert.Equal(t, "4", store.system[ArchiveCursorKey])

		records := decodeArchive(t, writer.objects[archiveName(3, 4)])
		require.Len(t, records, 2)
		assert.Equal(t, int64(3), records[0].Sequence)
		assert.Equal(t, int64(4), records[1].Sequence)
	})

	t.Run("gap after the cursor waits", func(t *testing.T) {
		store.records = append(store.records, newRecord(6, recent))

		require.NoError(t, supervisor.supervise())
		assert.Len(t, writer.names, 2)
		assert.Equal(t, "4", store.system[ArchiveCursorKey])
	})

	t.Run("settled gap is passed", func(t *testing.T) {
		now = now.Add(2 * time.Minute)

		require.NoError(t, supervisor.supervise())
		assert.Equal(t, archiveName(6, 6), writer.names[len(writer.names)-1])
		assert.Equal(t, "6", store.system[ArchiveCursorKey])
	})

	t.Run("old records past a gap are archived together", func(t *testing.T) {
		store.records = append(store.records, newRecord(8, old), newRecord(9, old), newRecord(11, model.MillisFromTime(now)))

		require.NoError(t, supervisor.supervise())
		assert.Equal(t, archiveName(8, 9), writer.names[len(writer.names)-1])
		assert.Equal(t, "9", store.system[ArchiveCursorKey])
	})
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "callbacks-00000000000000000001-00000000000000000012.jsonl", archiveName(1, 12))
}
