package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/feedlog/internal/domain"
)

func TestLogFormValues_Defaults(t *testing.T) {
	now := time.Date(2025, 6, 11, 20, 5, 0, 0, time.UTC)
	v := newLogFormValues(now)
	assert.Equal(t, "2025-06-11", v.Date)
	assert.Equal(t, "20:05", v.Start)
	assert.Equal(t, domain.FeedingLeft, v.Type)
	assert.Equal(t, 15, v.duration())
	assert.Nil(t, v.volume(), "no volume for breast feedings")
}

func TestLogFormValues_Session(t *testing.T) {
	now := time.Date(2025, 6, 11, 20, 0, 0, 0, time.UTC)

	t.Run("preset bottle", func(t *testing.T) {
		v := newLogFormValues(now)
		v.Start = "17:00"
		v.Type = domain.FeedingBottle
		v.DurationPreset = 10
		v.VolumePreset = 150

		s, err := v.session(now)
		require.NoError(t, err)
		assert.True(t, time.Date(2025, 6, 11, 17, 0, 0, 0, time.UTC).Equal(s.StartTime))
		assert.Equal(t, 10, s.Duration)
		require.NotNil(t, s.BottleVolume)
		assert.Equal(t, 150, *s.BottleVolume)
		assert.Equal(t, domain.FeedingBottle, s.Type)
	})

	t.Run("custom values", func(t *testing.T) {
		v := newLogFormValues(now)
		v.Type = domain.FeedingBottle
		v.DurationPreset = 0
		v.DurationCustom = "37"
		v.VolumePreset = 0
		v.VolumeCustom = "75"

		s, err := v.session(now)
		require.NoError(t, err)
		assert.Equal(t, 37, s.Duration)
		assert.Equal(t, 75, *s.BottleVolume)
	})

	t.Run("bad date", func(t *testing.T) {
		v := newLogFormValues(now)
		v.Date = "tomorrow-ish"
		_, err := v.session(now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestFormValidators(t *testing.T) {
	assert.NoError(t, validateEmail("a@b.co"))
	assert.Error(t, validateEmail("not-an-email"))

	assert.NoError(t, validateDate("2025-06-11"))
	assert.Error(t, validateDate("11.06.2025"))

	assert.NoError(t, validateClock("07:45"))
	assert.Error(t, validateClock("7.45"))

	assert.NoError(t, validateDuration("1"))
	assert.NoError(t, validateDuration("480"))
	assert.Error(t, validateDuration("0"))
	assert.Error(t, validateDuration("481"))
	assert.Error(t, validateDuration("ten"))

	assert.NoError(t, validateVolume("120"))
	assert.Error(t, validateVolume("0"))
	assert.Error(t, validateVolume("501"))
}

func TestPresetOptions(t *testing.T) {
	opts := presetOptions(durationPresets, "min")
	require.Len(t, opts, len(durationPresets)+1)
	assert.Equal(t, "5 min", opts[0].Key)
	assert.Equal(t, 5, opts[0].Value)
	assert.Equal(t, 0, opts[len(opts)-1].Value, "last option asks for a custom value")

	assert.Len(t, typeOptions(), 4)
}

func TestFormsBuild(t *testing.T) {
	var email, password, notes, minutes string
	assert.NotNil(t, credentialsForm(&email, &password, true))
	assert.NotNil(t, endForm(&notes, &minutes))
	assert.NotNil(t, logForm(newLogFormValues(time.Now())))
}
