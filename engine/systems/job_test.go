package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidates(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(4, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, js.Workers())

	var completed, failed, finished atomic.Int32
	var wg sync.WaitGroup
	boom := errors.New("boom")
	for i := 0; i < 20; i++ {
		wg.Add(1)
		fail := i%4 == 0
		require.NoError(t, js.Submit(JobTask{
			Name: "job",
			OnStart: func() error {
				if fail {
					return boom
				}
				return nil
			},
			OnComplete: func() { completed.Add(1) },
			OnFailure: func(err error) {
				assert.ErrorIs(t, err, boom)
				failed.Add(1)
			},
			OnCompletionCallback: func() {
				finished.Add(1)
				wg.Done()
			},
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(15), completed.Load())
	assert.Equal(t, int32(5), failed.Load())
	assert.Equal(t, int32(20), finished.Load())

	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
	assert.ErrorIs(t, js.Submit(JobTask{}), ErrJobSystemClosed)
}

func TestProgressClamps(t *testing.T) {
	p := &Progress{}
	p.SetProgress(1.5)
	assert.Equal(t, float32(1), p.GetProgress())
	p.SetProgress(-1)
	assert.Equal(t, float32(0), p.GetProgress())
	p.SetProgress(0.25)
	assert.Equal(t, float32(0.25), p.GetProgress())
	p.SetStatus("loading")
	assert.Equal(t, "loading", p.GetStatus())
}
