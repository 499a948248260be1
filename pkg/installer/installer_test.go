package installer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/migrator/pkg/fault"
)

// fakeTarget is an external system whose state the gate reads.
type fakeTarget struct {
	installed bool
	checks    int
	checkErr  error
}

func (f *fakeTarget) gate() Gate {
	return GateFunc(func(context.Context) (bool, error) {
		f.checks++
		if f.checkErr != nil {
			return false, f.checkErr
		}
		return f.installed, nil
	})
}

type recordingObserver struct {
	mu       sync.Mutex
	checks   int
	installs []bool
}

func (o *recordingObserver) GateChecked(string, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checks++
}

func (o *recordingObserver) InstallFinished(_ string, installed bool, _ error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.installs = append(o.installs, installed)
}

func TestInstallTwice(t *testing.T) {
	ctx := context.Background()
	ext := &fakeTarget{}
	runs := 0

	inst := New("unit", ext.gate(), func(context.Context) error {
		runs++
		ext.installed = true
		return nil
	})

	installed, err := inst.Install(ctx)
	require.NoError(t, err)
	assert.True(t, installed)

	installed, err = inst.Install(ctx)
	require.Error(t, err)
	assert.True(t, fault.IsAlreadyInstalled(err))
	assert.True(t, installed)

	assert.Equal(t, 1, runs)
}

func TestInstallAlreadyInstalled(t *testing.T) {
	ext := &fakeTarget{installed: true}
	runs := 0

	inst := New("unit", ext.gate(), func(context.Context) error {
		runs++
		return nil
	})

	_, err := inst.Install(context.Background())
	assert.True(t, fault.IsAlreadyInstalled(err))
	assert.Zero(t, runs)
}

func TestInstallFailureReflectsLiveState(t *testing.T) {
	tests := []struct {
		name           string
		leaveSatisfied bool
		wantInstalled  bool
	}{
		{name: "nothing applied", leaveSatisfied: false, wantInstalled: false},
		{name: "partial failure satisfied the gate", leaveSatisfied: true, wantInstalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ext := &fakeTarget{}
			boom := errors.New("boom")

			inst := New("unit", ext.gate(), func(context.Context) error {
				ext.installed = tt.leaveSatisfied
				return boom
			})

			installed, err := inst.Install(ctx)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, tt.wantInstalled, installed)

			installed, err = inst.IsInstalled(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantInstalled, installed)
		})
	}
}

func TestIsInstalledMemoized(t *testing.T) {
	ctx := context.Background()
	ext := &fakeTarget{}
	inst := New("unit", ext.gate(), func(context.Context) error { return nil })

	for i := 0; i < 3; i++ {
		installed, err := inst.IsInstalled(ctx)
		require.NoError(t, err)
		assert.False(t, installed)
	}
	assert.Equal(t, 1, ext.checks)

	// A new installer re-reads the target.
	ext.installed = true
	installed, err := New("unit", ext.gate(), nil).IsInstalled(ctx)
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestIsInstalledErrorNotMemoized(t *testing.T) {
	ctx := context.Background()
	ext := &fakeTarget{checkErr: fault.EnvironmentUnavailable(fault.CodeConnect, "down", nil)}
	inst := New("unit", ext.gate(), nil)

	_, err := inst.IsInstalled(ctx)
	assert.True(t, fault.IsEnvironmentUnavailable(err))

	ext.checkErr = nil
	ext.installed = true
	installed, err := inst.IsInstalled(ctx)
	require.NoError(t, err)
	assert.True(t, installed)
	assert.Equal(t, 2, ext.checks)
}

func TestInstallGateErrorSkipsAction(t *testing.T) {
	ext := &fakeTarget{checkErr: fault.EnvironmentUnavailable(fault.CodeConnect, "down", nil)}
	runs := 0
	inst := New("unit", ext.gate(), func(context.Context) error {
		runs++
		return nil
	})

	_, err := inst.Install(context.Background())
	assert.True(t, fault.IsEnvironmentUnavailable(err))
	assert.Zero(t, runs)
}

func TestInstallObserver(t *testing.T) {
	ext := &fakeTarget{}
	obs := &recordingObserver{}
	inst := New("unit", ext.gate(), func(context.Context) error {
		ext.installed = true
		return nil
	}, WithObserver(obs))

	_, err := inst.Install(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, obs.checks)
	assert.Equal(t, []bool{true}, obs.installs)
}
