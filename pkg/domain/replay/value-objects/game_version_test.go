package replay_vo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

func TestGameVersion_FromTime(t *testing.T) {
	played := time.Date(2020, 9, 8, 14, 30, 0, 0, time.UTC)
	v := vo.GameVersionFromTime(played, false)
	assert.Equal(t, 20200908, v.Version)
	assert.False(t, v.Concrete)
	assert.True(t, v.Available())
}

func TestGameVersion_Ordering(t *testing.T) {
	older := vo.NewGameVersion(20190101, true)
	newer := vo.NewGameVersion(20190207, true)
	assert.True(t, older.Before(newer))
	assert.True(t, newer.AtLeast(older))
	assert.True(t, newer.AtLeast(newer))
	assert.False(t, newer.Before(older))
}

func TestNoGameVersion(t *testing.T) {
	v := vo.NoGameVersion()
	assert.False(t, v.Available())
}
