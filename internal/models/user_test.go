package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUser_Full(t *testing.T) {
	raw := map[string]any{
		"email": "a@b.c",
		"venues": map[string]any{
			"Hall": map[string]any{"__created": true, "Fan": "on", "faults": ""},
			"Lab":  map[string]any{"Light": "3", "faults": "Sensor offline"},
		},
		"schedules": map[string]any{
			"Hall": map[string]any{
				"Fan": map[string]any{"time": "09:00 AM", "action": "off", "status": "enable", "lastNotified": json.Number("1700000000")},
			},
		},
		"lastFaultNotification": float64(1690000000),
		"fcmToken":              "tok",
	}

	u, err := DecodeUser("u1", raw)
	require.NoError(t, err)

	assert.Equal(t, "u1", u.UID)
	assert.Equal(t, map[string]any{"Fan": "on"}, u.Venues["Hall"].Devices)
	assert.Equal(t, "Sensor offline", u.Venues["Lab"].Faults)

	s := u.Schedules["Hall"]["Fan"]
	assert.Equal(t, "09:00 AM", s.Time)
	assert.Equal(t, "off", s.Action)
	assert.True(t, s.Enabled())
	require.NotNil(t, s.LastNotified)
	assert.Equal(t, int64(1700000000), *s.LastNotified)

	require.NotNil(t, u.LastFaultNotification)
	assert.Equal(t, int64(1690000000), *u.LastFaultNotification)
	assert.Equal(t, "tok", u.FCMToken)
	assert.Empty(t, u.Skipped)
}

func TestDecodeUser_SkipsMalformedChildren(t *testing.T) {
	raw := map[string]any{
		"venues": map[string]any{
			"Hall":   "not a venue",
			"Office": map[string]any{"Lamp": "off"},
		},
		"schedules": map[string]any{
			"Office": map[string]any{
				"Lamp":  map[string]any{"time": 930, "action": "on", "status": "enable"},
				"Fan":   map[string]any{"time": "09:30 AM", "action": "on", "status": "enable", "lastNotified": "yesterday"},
				"Light": map[string]any{"time": "09:30 AM", "action": "on", "status": "enable"},
			},
			"Hall": []any{"x"},
		},
	}

	u, err := DecodeUser("u2", raw)
	require.NoError(t, err)

	assert.Contains(t, u.Venues, "Office")
	assert.NotContains(t, u.Venues, "Hall")
	assert.Len(t, u.Schedules["Office"], 2)
	assert.Contains(t, u.Schedules["Office"], "Light")
	assert.Nil(t, u.Schedules["Office"]["Fan"].LastNotified)
	assert.ElementsMatch(t, []string{
		"venues/Hall",
		"schedules/Office/Lamp",
		"schedules/Office/Fan/lastNotified",
		"schedules/Hall",
	}, u.Skipped)
}

func TestDecodeUser_EpochForms(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"integer number", json.Number("1700000000"), 1700000000},
		{"fractional number", json.Number("1700000000.5"), 1700000000},
		{"exponent number", json.Number("1.7e9"), 1700000000},
		{"float", float64(1700000000.9), 1700000000},
		{"numeric string", "1700000000", 1700000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{
				"schedules": map[string]any{
					"Hall": map[string]any{
						"Fan": map[string]any{"time": "09:00 AM", "action": "on", "status": "enable", "lastNotified": tt.in},
					},
				},
				"lastFaultNotification": tt.in,
			}

			u, err := DecodeUser("u1", raw)
			require.NoError(t, err)

			s, ok := u.Schedules["Hall"]["Fan"]
			require.True(t, ok)
			require.NotNil(t, s.LastNotified)
			assert.Equal(t, tt.want, *s.LastNotified)
			require.NotNil(t, u.LastFaultNotification)
			assert.Equal(t, tt.want, *u.LastFaultNotification)
			assert.Empty(t, u.Skipped)
		})
	}
}

func TestDecodeUser_MissingSections(t *testing.T) {
	u, err := DecodeUser("u3", map[string]any{"email": "x"})
	require.NoError(t, err)
	assert.Empty(t, u.Venues)
	assert.Empty(t, u.Schedules)
	assert.Nil(t, u.LastFaultNotification)
}

func TestDecodeUser_NotAnObject(t *testing.T) {
	_, err := DecodeUser("u4", "garbage")
	assert.True(t, errors.Is(err, ErrMalformedUser))
}

func TestFirstFault_LexicalOrder(t *testing.T) {
	u := &UserRecord{Venues: map[string]Venue{
		"Zeta":  {Faults: "zeta fault"},
		"Alpha": {Faults: ""},
		"Beta":  {Faults: "beta fault"},
	}}
	venue, faults, ok := u.FirstFault()
	assert.True(t, ok)
	assert.Equal(t, "Beta", venue)
	assert.Equal(t, "beta fault", faults)

	_, _, ok = (&UserRecord{}).FirstFault()
	assert.False(t, ok)
}

func TestFirstFaultOf(t *testing.T) {
	venues := map[string]any{
		"B": map[string]any{"faults": "b"},
		"A": map[string]any{"faults": ""},
		"C": "junk",
	}
	assert.Equal(t, "b", FirstFaultOf(venues))
	assert.Equal(t, "", FirstFaultOf(nil))
}

func TestCooledDown(t *testing.T) {
	last := int64(1000)
	assert.True(t, CooledDown(nil, 1000, 3600))
	assert.False(t, CooledDown(&last, 1000+3599, 3600))
	assert.True(t, CooledDown(&last, 1000+3600, 3600))
}

func TestNormalizeState(t *testing.T) {
	cases := map[string]string{"ON": "on", " off ": "off", "1": "1", "5": "5"}
	for in, want := range cases {
		got, ok := NormalizeState(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "6", "01", "maybe", "-1"} {
		_, ok := NormalizeState(in)
		assert.False(t, ok, in)
	}
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("Living Room"))
	for _, bad := range []string{"", "   ", "a.b", "a#b", "a$b", "a[b", "a]b", "a/b"} {
		assert.False(t, ValidKey(bad), bad)
	}
}
