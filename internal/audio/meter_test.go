package audio_test

import (
	"sync"
	"testing"

	"github.com/alkime/voxrelay/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestMeter_Write(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(10, 10)
	m.Write([]int16{1, 2, 3, 4, 5})

	require.Equal(t, []int16{1, 2, 3, 4, 5}, m.Read())
}

func TestMeter_WriteEmpty(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(10, 10)
	m.Write(nil)

	require.Nil(t, m.Read())
}

func TestMeter_Wraparound(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(5, 5)
	m.Write([]int16{1, 2})
	m.Write([]int16{3, 4})
	m.Write([]int16{5, 6, 7})

	require.Equal(t, []int16{3, 4, 5, 6, 7}, m.Read())
	require.Equal(t, []int16{6, 7}, m.Latest(2))
}

func TestMeter_WriteLargerThanCapacity(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(3, 3)
	m.Write([]int16{1})
	m.Write([]int16{2, 3, 4, 5, 6})
	m.Write([]int16{7})

	require.Equal(t, []int16{5, 6, 7}, m.Read())
}

func TestMeter_ViewLimitsRead(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(10, 3)
	m.Write([]int16{1, 2, 3, 4, 5, 6})

	require.Equal(t, []int16{4, 5, 6}, m.Read())
	require.Equal(t, []int16{1, 2, 3, 4, 5, 6}, m.Latest(100))
}

func TestMeter_Reset(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(4, 4)
	m.Write([]int16{1, 2, 3})
	m.Reset()

	require.Nil(t, m.Read())

	m.Write([]int16{9})
	require.Equal(t, []int16{9}, m.Read())
}

func TestMeter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := audio.NewMeter(audio.FrameSamples*4, audio.FrameSamples)
	frame := make([]int16, audio.FrameSamples)

	var wg sync.WaitGroup
	wg.Go(func() {
		for range 200 {
			m.Write(frame)
		}
	})

	for range 4 {
		wg.Go(func() {
			for range 200 {
				got := m.Read()
				require.LessOrEqual(t, len(got), audio.FrameSamples)
			}
		})
	}

	wg.Wait()
	require.Len(t, m.Read(), audio.FrameSamples)
}
