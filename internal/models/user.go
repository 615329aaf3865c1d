package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// Keys of the per-user subtree under users/{uid}.
const (
	KeyVenues         = "venues"
	KeySchedules      = "schedules"
	KeyFaults         = "faults"
	KeyCreated        = "__created"
	KeyLastFault      = "lastFaultNotification"
	KeyFCMToken       = "fcmToken"
	KeyMonitoring     = "monitoring_venues"
	KeySecure         = "secure"
	KeyGeminiKey      = "gemini_key"
	KeyEmail          = "email"
	KeyName           = "name"
	KeyVerifiedAccess = "verifiedAccess"
	KeyAccessKey      = "accessKey"
)

var ErrMalformedUser = errors.New("user record is not an object")

// Venue is one entry of the venues map. Devices excludes the faults field
// and the creation marker.
type Venue struct {
	Devices map[string]any
	Faults  string
}

// UserRecord is the decoded view of users/{uid}. Skipped lists the paths
// of entries that could not be decoded and were left out.
type UserRecord struct {
	UID                   string
	Venues                map[string]Venue
	Schedules             map[string]map[string]Schedule
	LastFaultNotification *int64
	FCMToken              string
	Skipped               []string
}

// DecodeUser converts a raw tree node into a UserRecord. Only a node that is
// not an object at all is an error; malformed children are skipped.
func DecodeUser(uid string, raw any) (*UserRecord, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMalformedUser, uid)
	}
	u := &UserRecord{
		UID:       uid,
		Venues:    map[string]Venue{},
		Schedules: map[string]map[string]Schedule{},
	}
	u.decodeVenues(m[KeyVenues])
	u.decodeSchedules(m[KeySchedules])

	if v, ok := m[KeyLastFault]; ok && v != nil {
		if ts, ok := parseEpoch(v); ok {
			u.LastFaultNotification = &ts
		} else {
			u.skip(KeyLastFault)
		}
	}
	if v, ok := m[KeyFCMToken].(string); ok {
		u.FCMToken = v
	}
	return u, nil
}

func (u *UserRecord) skip(path string) { u.Skipped = append(u.Skipped, path) }

func (u *UserRecord) decodeVenues(raw any) {
	if raw == nil {
		return
	}
	venues, ok := raw.(map[string]any)
	if !ok {
		u.skip(KeyVenues)
		return
	}
	for name, rv := range venues {
		vm, ok := rv.(map[string]any)
		if !ok {
			u.skip(KeyVenues + "/" + name)
			continue
		}
		v := Venue{Devices: map[string]any{}}
		for k, val := range vm {
			switch k {
			case KeyCreated:
			case KeyFaults:
				if val != nil {
					v.Faults = cast.ToString(val)
				}
			default:
				v.Devices[k] = val
			}
		}
		u.Venues[name] = v
	}
}

func (u *UserRecord) decodeSchedules(raw any) {
	if raw == nil {
		return
	}
	byVenue, ok := raw.(map[string]any)
	if !ok {
		u.skip(KeySchedules)
		return
	}
	for venue, rd := range byVenue {
		devices, ok := rd.(map[string]any)
		if !ok {
			u.skip(KeySchedules + "/" + venue)
			continue
		}
		for device, rs := range devices {
			path := KeySchedules + "/" + venue + "/" + device
			s, stampDropped, err := decodeSchedule(rs)
			if err != nil {
				u.skip(path)
				continue
			}
			if stampDropped {
				u.skip(path + "/" + KeyLastNotified)
			}
			if u.Schedules[venue] == nil {
				u.Schedules[venue] = map[string]Schedule{}
			}
			u.Schedules[venue][device] = s
		}
	}
}

// SortedVenues returns venue names in lexical order.
func (u *UserRecord) SortedVenues() []string {
	names := make([]string, 0, len(u.Venues))
	for name := range u.Venues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FirstFault returns the first venue, in lexical order, whose faults field
// is non-empty.
func (u *UserRecord) FirstFault() (venue, faults string, ok bool) {
	for _, name := range u.SortedVenues() {
		if f := u.Venues[name].Faults; f != "" {
			return name, f, true
		}
	}
	return "", "", false
}

// FirstFaultOf is FirstFault over a raw venues map, as stored.
func FirstFaultOf(venues map[string]any) string {
	names := make([]string, 0, len(venues))
	for name := range venues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vm, ok := venues[name].(map[string]any)
		if !ok || vm[KeyFaults] == nil {
			continue
		}
		if f := cast.ToString(vm[KeyFaults]); f != "" {
			return f
		}
	}
	return ""
}

// Profile is what /auth/profile returns.
type Profile struct {
	UID            string         `json:"uid"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Venues         map[string]any `json:"venues"`
	Faults         string         `json:"faults"`
	VerifiedAccess bool           `json:"verifiedAccess"`
}
