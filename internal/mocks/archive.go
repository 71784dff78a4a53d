// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package mocks

import (
	"context"
	"io"
	"sort"
	"sync"
)

// MemoryArchive is an in-memory stand-in for the S3 callback archive.
type MemoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Err, when set, is returned by every upload.
	Err error
}

// NewMemoryArchive creates an empty MemoryArchive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

// UploadCallbackArchive stores the body under name.
func (a *MemoryArchive) UploadCallbackArchive(ctx context.Context, name string, body io.Reader) error {
	if a.Err != nil {
		return a.Err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[name] = data

	return nil
}

// Object returns the contents stored under name.
func (a *MemoryArchive) Object(name string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[name]
	return data, ok
}

// Names returns the stored object names in lexical order.
func (a *MemoryArchive) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.objects))
	for name := range a.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
