// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/model"
)

// ArchiveCursorKey is the system key holding the sequence of the last
// archived callback record.
const ArchiveCursorKey = "CallbackArchiveSequence"

const (
	defaultArchiveBatch       = 1000
	defaultArchiveSettleDelay = time.Minute
)

type archiveStore interface {
	GetSystemValue(key string) (string, error)
	SetSystemValue(key, value string) error
	GetCallbackRecordsAfter(sequence int64, limit int) ([]*model.CallbackRecord, error)
}

type archiveWriter interface {
	UploadCallbackArchive(ctx context.Context, name string, body io.Reader) error
}

// ArchiveSupervisorOptions configures an ArchiveSupervisor.
type ArchiveSupervisorOptions struct {
	Interval time.Duration
	Batch    int
	Timeout  time.Duration
	// SettleDelay is how old a record must be before the archive moves past
	// a missing sequence ahead of it. Sequences are taken before commit, so a
	// gap may still be filled by an insert in flight.
	SettleDelay time.Duration
	Now         func() time.Time
}

// ArchiveSupervisor copies callback records to object storage as JSON lines
// files, in sequence order and at most once per successful upload.
type ArchiveSupervisor struct {
	store   archiveStore
	writer  archiveWriter
	options ArchiveSupervisorOptions
	logger  log.FieldLogger

	stop chan struct{}
	done chan struct{}
}

// NewArchiveSupervisor creates a new ArchiveSupervisor.
func NewArchiveSupervisor(store archiveStore, writer archiveWriter, options ArchiveSupervisorOptions, logger log.FieldLogger) *ArchiveSupervisor {
	if options.Interval <= 0 {
		options.Interval = 5 * time.Minute
	}
	if options.Batch <= 0 {
		options.Batch = defaultArchiveBatch
	}
	if options.Timeout <= 0 {
		options.Timeout = 2 * time.Minute
	}
	if options.SettleDelay <= 0 {
		options.SettleDelay = defaultArchiveSettleDelay
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &ArchiveSupervisor{
		store:   store,
		writer:  writer,
		options: options,
		logger:  logger.WithField("supervisor", "archive"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the archive loop on a new goroutine until Stop is called.
func (s *ArchiveSupervisor) Start() {
	s.logger.Info("Archive supervisor started")
	go run(s.options.Interval, s.stop, s.done, func() {
		err := s.supervise()
		if err != nil {
			s.logger.WithError(err).Error("Failed to archive callback records")
		}
	})
}

// Stop ends the archive loop and waits for the current pass to finish.
func (s *ArchiveSupervisor) Stop() {
	close(s.stop)
	<-s.done
}

// supervise uploads batches until it catches up with the newest record.
func (s *ArchiveSupervisor) supervise() error {
	for {
		archived, err := s.archiveBatch()
		if err != nil {
			return err
		}
		if archived < s.options.Batch {
			return nil
		}
	}
}

func (s *ArchiveSupervisor) archiveBatch() (int, error) {
	cursor, err := s.cursor()
	if err != nil {
		return 0, err
	}

	fetched, err := s.store.GetCallbackRecordsAfter(cursor, s.options.Batch)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch callback records")
	}
	records := s.settled(cursor, fetched)
	if len(records) == 0 {
		return 0, nil
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	for _, record := range records {
		err = encoder.Encode(record)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to encode callback record %s", record.ID)
		}
	}

	first, last := records[0].Sequence, records[len(records)-1].Sequence
	name := archiveName(first, last)

	ctx, cancel := context.WithTimeout(context.Background(), s.options.Timeout)
	defer cancel()
	err = s.writer.UploadCallbackArchive(ctx, name, &buffer)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to upload archive %s", name)
	}

	err = s.store.SetSystemValue(ArchiveCursorKey, strconv.FormatInt(last, 10))
	if err != nil {
		return 0, errors.Wrap(err, "failed to advance archive cursor")
	}

	s.logger.WithFields(log.Fields{
		"archive": name,
		"records": len(records),
	}).Info("Archived callback records")

	return len(records), nil
}

// settled returns the leading records that can be archived without skipping
// a sequence still being written. Records directly following the previous
// one always qualify. Past a gap only records older than the settle delay
// do, since any insert that took a lower sequence has finished by then.
func (s *ArchiveSupervisor) settled(cursor int64, records []*model.CallbackRecord) []*model.CallbackRecord {
	settledBefore := model.MillisFromTime(s.options.Now().Add(-s.options.SettleDelay))
	expected := cursor + 1

	for i, record := range records {
		if record.Sequence != expected && record.ReceivedAt >= settledBefore {
			s.logger.WithFields(log.Fields{
				"missing-sequence": expected,
				"next-sequence":    record.Sequence,
			}).Debug("Waiting for callback record sequence gap to settle")
			return records[:i]
		}
		expected = record.Sequence + 1
	}

	return records
}

func (s *ArchiveSupervisor) cursor() (int64, error) {
	value, err := s.store.GetSystemValue(ArchiveCursorKey)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read archive cursor")
	}
	if value == "" {
		return 0, nil
	}
	cursor, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid archive cursor %q", value)
	}

	return cursor, nil
}

func archiveName(first, last int64) string {
	return fmt.Sprintf("callbacks-%020d-%020d.jsonl", first, last)
}
