package forecast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/hikelog/pkg/sampling"
)

func TestClassifyPressureBoundaries(t *testing.T) {
	cases := []struct {
		rate int
		want Change
	}{
		{201, Soaring},
		{200, RisingQuickly},
		{121, RisingQuickly},
		{120, Rising},
		{54, Rising},
		{53, RisingSlowly},
		{1, RisingSlowly},
		{0, Steady},
		{-1, FallingSlowly},
		{-53, FallingSlowly},
		{-54, Falling},
		{-120, Falling},
		{-121, FallingQuickly},
		{-200, FallingQuickly},
		{-201, Plummeting},
		{sampling.InvalidRate, Steady},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyPressure(c.rate), "rate %d", c.rate)
	}
}

func TestClassifyTemperatureBoundaries(t *testing.T) {
	require.Equal(t, Soaring, ClassifyTemperature(15))
	require.Equal(t, RisingQuickly, ClassifyTemperature(14))
	require.Equal(t, Rising, ClassifyTemperature(3))
	require.Equal(t, RisingSlowly, ClassifyTemperature(2))
	require.Equal(t, Steady, ClassifyTemperature(0))
	require.Equal(t, FallingSlowly, ClassifyTemperature(-2))
	require.Equal(t, Falling, ClassifyTemperature(-3))
	require.Equal(t, FallingQuickly, ClassifyTemperature(-9))
	require.Equal(t, Plummeting, ClassifyTemperature(-15))
	require.Equal(t, Steady, ClassifyTemperature(sampling.InvalidRate))
}

func TestChangeString(t *testing.T) {
	require.Equal(t, "Rising Fast", RisingQuickly.String())
	require.Equal(t, "Falling Slow", FallingSlowly.String())
	require.Equal(t, "Change(12)", Change(12).String())
}

func TestForecast(t *testing.T) {
	cases := []struct {
		short, long int
		want        string
	}{
		{sampling.InvalidRate, 0, Unavailable},
		{0, sampling.InvalidRate, Unavailable},
		{-150, 0, "Brief Shower"},
		{-10, -10, "Unchanged"},
		{-100, -10, "Poor Weather"},
		{-150, -100, "Appr. Storm"},
		{30, 100, "Good Weather"},
		{150, 100, "Clearing"},
		{-300, -300, "Appr. Storm"},
		{-100, 50, "Rain"},
		{0, 300, "Unchanged"},
		{30, 300, "Fair"},
		{150, 300, "Clear, Dry"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Forecast(c.short, c.long), "short %d long %d", c.short, c.long)
	}
}

func TestTimeToDestination(t *testing.T) {
	m, ok := TimeToDestination(1000, 0, 20)
	require.True(t, ok)
	require.Equal(t, 50, m)
	require.Equal(t, "00:50", DurationString(m, ok))

	m, ok = TimeToDestination(-500, 0, -30)
	require.True(t, ok)
	require.Equal(t, 17, m)

	_, ok = TimeToDestination(1000, 0, -20)
	require.False(t, ok)
	_, ok = TimeToDestination(1000, 0, 0)
	require.False(t, ok)
	_, ok = TimeToDestination(1000, 0, sampling.InvalidRate)
	require.False(t, ok)
	_, ok = TimeToDestination(100000, 0, 1)
	require.False(t, ok)
	require.Equal(t, "-----", DurationString(0, false))
}
