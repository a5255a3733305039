// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/ferry/internal/events"
)

// fakeStore records the call sequence and lets tests fail individual steps.
type fakeStore struct {
	calls []string

	registerErr error
	loadErr     error
	manageErr   error
	addressErr  error
	releaseErr  error

	image  *Config
	status Status
}

func (f *fakeStore) Register(name string, validate Validator) (Handle, error) {
	f.calls = append(f.calls, "register")
	return 0, f.registerErr
}

func (f *fakeStore) Load(h Handle, source string) error {
	f.calls = append(f.calls, "load")
	return f.loadErr
}

func (f *fakeStore) Manage(h Handle) error {
	f.calls = append(f.calls, "manage")
	return f.manageErr
}

func (f *fakeStore) Address(h Handle) (*Config, Status, error) {
	f.calls = append(f.calls, "address")
	if f.addressErr != nil {
		return nil, StatusUnchanged, f.addressErr
	}
	return f.image, f.status, nil
}

func (f *fakeStore) ReleaseAddress(h Handle) error {
	f.calls = append(f.calls, "release")
	return f.releaseErr
}

func quietEmitter() *events.Emitter {
	return events.NewEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestManager(store Store) *Manager {
	return NewManager(store, quietEmitter(), "ferry.config", "ferry_config.yaml", 1024)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			name: "valid table",
			cfg:  Config{TicksPerSecond: 100, RxCRCChunkBytes: 2048, OutgoingFileChunkBytes: 512},
			want: nil,
		},
		{
			name: "zero tick rate",
			cfg:  Config{TicksPerSecond: 0, RxCRCChunkBytes: 2048, OutgoingFileChunkBytes: 512},
			want: ErrZeroTickRate,
		},
		{
			name: "zero crc chunk",
			cfg:  Config{TicksPerSecond: 100, RxCRCChunkBytes: 0, OutgoingFileChunkBytes: 512},
			want: ErrCRCChunkAlign,
		},
		{
			name: "misaligned crc chunk",
			cfg:  Config{TicksPerSecond: 100, RxCRCChunkBytes: 1500, OutgoingFileChunkBytes: 512},
			want: ErrCRCChunkAlign,
		},
		{
			name: "outgoing chunk too large",
			cfg:  Config{TicksPerSecond: 100, RxCRCChunkBytes: 1024, OutgoingFileChunkBytes: 4096},
			want: ErrChunkOverflow,
		},
		{
			name: "outgoing chunk at capacity",
			cfg:  Config{TicksPerSecond: 100, RxCRCChunkBytes: 1024, OutgoingFileChunkBytes: 1024},
			want: nil,
		},
		{
			name: "tick rate checked before crc alignment",
			cfg:  Config{TicksPerSecond: 0, RxCRCChunkBytes: 3, OutgoingFileChunkBytes: 9999},
			want: ErrZeroTickRate,
		},
		{
			name: "crc alignment checked before chunk size",
			cfg:  Config{TicksPerSecond: 100, RxCRCChunkBytes: 3, OutgoingFileChunkBytes: 9999},
			want: ErrCRCChunkAlign,
		},
	}

	m := newTestManager(&fakeStore{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Validate(&tt.cfg)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestInitSequence(t *testing.T) {
	store := &fakeStore{image: &Config{TicksPerSecond: 100, RxCRCChunkBytes: 1024, OutgoingFileChunkBytes: 512}}
	m := newTestManager(store)

	require.NoError(t, m.Init())
	assert.Equal(t, []string{"register", "load", "manage", "address"}, store.calls)
	assert.Equal(t, store.image, m.Active())
}

func TestInitUpdatedStatusIsSuccess(t *testing.T) {
	store := &fakeStore{image: &Config{TicksPerSecond: 1}, status: StatusUpdated}
	m := newTestManager(store)
	assert.NoError(t, m.Init())
}

func TestInitFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		store *fakeStore
		calls []string
	}{
		{
			name:  "register fails",
			store: &fakeStore{registerErr: boom},
			calls: []string{"register"},
		},
		{
			name:  "load fails",
			store: &fakeStore{loadErr: boom},
			calls: []string{"register", "load"},
		},
		{
			name:  "manage fails",
			store: &fakeStore{manageErr: boom},
			calls: []string{"register", "load", "manage"},
		},
		{
			name:  "address fails",
			store: &fakeStore{addressErr: boom},
			calls: []string{"register", "load", "manage", "address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(tt.store)
			err := m.Init()
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, tt.calls, tt.store.calls)
			assert.Nil(t, m.Active())
		})
	}
}

func TestReconcileIfIdleNoOpWhileEngineEnabled(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)

	require.NoError(t, m.ReconcileIfIdle(true))
	assert.Empty(t, store.calls)
}

func TestReconcileIfIdleSequence(t *testing.T) {
	store := &fakeStore{image: &Config{TicksPerSecond: 50}, status: StatusUpdated}
	m := newTestManager(store)

	require.NoError(t, m.ReconcileIfIdle(false))
	assert.Equal(t, []string{"release", "manage", "address"}, store.calls)
	assert.Equal(t, store.image, m.Active())
}

func TestReconcileIfIdleUnchangedStatusIsSuccess(t *testing.T) {
	store := &fakeStore{image: &Config{TicksPerSecond: 50}, status: StatusUnchanged}
	m := newTestManager(store)
	assert.NoError(t, m.ReconcileIfIdle(false))
}

func TestReconcileIfIdleStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		store *fakeStore
		calls []string
	}{
		{
			name:  "release fails",
			store: &fakeStore{releaseErr: boom},
			calls: []string{"release"},
		},
		{
			name:  "manage fails",
			store: &fakeStore{manageErr: boom},
			calls: []string{"release", "manage"},
		},
		{
			name:  "address fails",
			store: &fakeStore{addressErr: boom},
			calls: []string{"release", "manage", "address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(tt.store)
			err := m.ReconcileIfIdle(false)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, tt.calls, tt.store.calls)
		})
	}
}
