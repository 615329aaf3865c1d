package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/remote"
	"venue_control/internal/repository"

	"github.com/spf13/cast"
)

const voiceModel = "gemini-2.0-flash"

// VoiceCommand is the device change a sentence resolved to.
type VoiceCommand struct {
	Venue  string `json:"venue"`
	Device string `json:"device"`
	Value  string `json:"value"`
}

// VoiceService turns a natural-language command into a device state write
// using the user's own Gemini key.
type VoiceService struct {
	tree     repository.TreeStore
	exec     *remote.Executor
	client   *http.Client
	endpoint string
	timeout  time.Duration
	log      *logger.Logger
}

func NewVoiceService(tree repository.TreeStore, exec *remote.Executor, client *http.Client, endpoint string, timeout time.Duration, log *logger.Logger) *VoiceService {
	if log == nil {
		log = logger.Nop()
	}
	return &VoiceService{tree: tree, exec: exec, client: client, endpoint: endpoint, timeout: timeout, log: log}
}

func (s *VoiceService) SetVoiceKey(ctx context.Context, uid, key string) error {
	if strings.TrimSpace(key) == "" {
		return newAppError(http.StatusBadRequest, "API key required", nil)
	}
	if err := s.tree.Update(ctx, userPath(uid, models.KeySecure), map[string]any{models.KeyGeminiKey: key}); err != nil {
		s.log.Errorw("set_voice_key_failed", "uid", uid, "err", err)
		return newAppError(http.StatusInternalServerError, "Failed to save voice key", err)
	}
	s.log.Infow("voice_key_set", "uid", uid)
	return nil
}

func (s *VoiceService) VoiceKeyExists(ctx context.Context, uid string) (bool, error) {
	key, err := s.voiceKey(ctx, uid)
	if err != nil {
		s.log.Errorw("check_voice_key_failed", "uid", uid, "err", err)
		return false, newAppError(http.StatusInternalServerError, "Failed to check voice key", err)
	}
	return key != "", nil
}

func (s *VoiceService) voiceKey(ctx context.Context, uid string) (string, error) {
	raw, err := s.tree.Get(ctx, userPath(uid, models.KeySecure, models.KeyGeminiKey))
	if err != nil {
		return "", err
	}
	return cast.ToString(raw), nil
}

// VoiceCommand interprets text against the user's venues and applies the
// resulting state.
func (s *VoiceService) VoiceCommand(ctx context.Context, uid, text string) (VoiceCommand, error) {
	if strings.TrimSpace(text) == "" {
		return VoiceCommand{}, newAppError(http.StatusBadRequest, "No text provided", nil)
	}
	key, err := s.voiceKey(ctx, uid)
	if err != nil {
		return VoiceCommand{}, newAppError(http.StatusInternalServerError, "Voice command processing failed", err)
	}
	if key == "" {
		return VoiceCommand{}, newAppError(http.StatusBadRequest, "No API key stored", nil)
	}

	raw, err := s.tree.Get(ctx, userPath(uid, models.KeyVenues))
	if err != nil {
		return VoiceCommand{}, newAppError(http.StatusInternalServerError, "Voice command processing failed", err)
	}
	venues, _ := raw.(map[string]any)
	allowed := allowedDevices(venues)

	payload := map[string]any{
		"model": voiceModel,
		"contents": []any{map[string]any{
			"role":  "user",
			"parts": []any{map[string]any{"text": buildVoicePrompt(allowed, text)}},
		}},
	}
	endpoint := s.endpoint + "?key=" + url.QueryEscape(key)
	body, err := s.exec.Execute(ctx, "voice.generate", remote.PostJSON(s.client, endpoint, payload, nil), remote.WithTimeout(s.timeout))
	if err != nil {
		return VoiceCommand{}, fromRemote(err)
	}

	cmd, err := parseVoiceReply(body)
	if err != nil {
		s.log.Errorw("voice_reply_unparsable", "uid", uid, "err", err, "body", string(body))
		return VoiceCommand{}, newAppError(http.StatusInternalServerError, "Unable to parse Gemini response", err)
	}
	value, ok := models.NormalizeState(cmd.Value)
	if cmd.Venue == "" || cmd.Device == "" || !ok || !contains(allowed[cmd.Venue], cmd.Device) {
		return VoiceCommand{}, newAppError(http.StatusBadRequest, "Not available in system", nil)
	}
	cmd.Value = value

	if err := s.tree.Update(ctx, userPath(uid, models.KeyVenues, cmd.Venue), map[string]any{cmd.Device: cmd.Value}); err != nil {
		s.log.Errorw("voice_apply_failed", "uid", uid, "err", err)
		return VoiceCommand{}, newAppError(http.StatusInternalServerError, "Voice command processing failed", err)
	}
	s.log.Infow("voice_command_executed", "uid", uid, "venue", cmd.Venue, "device", cmd.Device, "value", cmd.Value)
	return cmd, nil
}

// allowedDevices lists device names per venue, without the faults field and
// the creation marker.
func allowedDevices(venues map[string]any) map[string][]string {
	out := make(map[string][]string, len(venues))
	for name, v := range venues {
		devices := []string{}
		if vm, ok := v.(map[string]any); ok {
			for d := range vm {
				if d != models.KeyCreated && d != models.KeyFaults {
					devices = append(devices, d)
				}
			}
		}
		sort.Strings(devices)
		out[name] = devices
	}
	return out
}

func buildVoicePrompt(allowed map[string][]string, text string) string {
	names := make([]string, 0, len(allowed))
	for v := range allowed {
		names = append(names, v)
	}
	sort.Strings(names)
	venuesJSON, _ := json.Marshal(names)
	devicesJSON, _ := json.Marshal(allowed)

	return fmt.Sprintf(`
Allowed Venues: %s
Allowed Devices: %s

Convert this command into JSON:
{"venue":"...", "device":"...", "value":"..."}

Rules:
- Only use existing venue and device names
- Value must be "on", "off", or 1-5
- Support Tamil/English natural language
- Support ALL venue and ALL device handling
- If unknown, return null JSON
User command: %q
Return STRICT JSON only.
`, venuesJSON, devicesJSON, text)
}

type generateReply struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// parseVoiceReply extracts the command JSON from the first candidate,
// tolerating markdown code fences. A null command decodes to the zero value.
func parseVoiceReply(body []byte) (VoiceCommand, error) {
	var reply generateReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return VoiceCommand{}, err
	}
	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return VoiceCommand{}, fmt.Errorf("reply has no candidates")
	}
	text := strings.TrimSpace(reply.Candidates[0].Content.Parts[0].Text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.TrimSpace(strings.ReplaceAll(text, "```", ""))

	var loose map[string]any
	if err := json.Unmarshal([]byte(text), &loose); err != nil {
		return VoiceCommand{}, err
	}
	return VoiceCommand{
		Venue:  cast.ToString(loose["venue"]),
		Device: cast.ToString(loose["device"]),
		Value:  cast.ToString(loose["value"]),
	}, nil
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
