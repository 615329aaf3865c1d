package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/remote"
	"venue_control/internal/repository"
)

var (
	ErrNoPushToken  = errors.New("no push token registered")
	ErrPushRejected = errors.New("push rejected")
)

// PushNotifier sends FCM messages to the token stored at users/{uid}/fcmToken.
type PushNotifier struct {
	store     repository.TreeStore
	exec      *remote.Executor
	client    *http.Client
	endpoint  string
	serverKey string
	log       *logger.Logger
}

func NewPushNotifier(store repository.TreeStore, exec *remote.Executor, client *http.Client, endpoint, serverKey string, log *logger.Logger) *PushNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &PushNotifier{store: store, exec: exec, client: client, endpoint: endpoint, serverKey: serverKey, log: log}
}

type pushMessage struct {
	To           string           `json:"to"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// pushReply is the per-message outcome FCM returns with a 200 status.
type pushReply struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

// rejection returns the delivery error carried in a 200 reply, if any.
func rejection(body []byte) (string, bool) {
	var r pushReply
	if err := json.Unmarshal(body, &r); err != nil {
		return "", false
	}
	for _, res := range r.Results {
		if res.Error != "" {
			return res.Error, true
		}
	}
	if r.Failure > 0 {
		return fmt.Sprintf("%d of %d messages failed", r.Failure, r.Failure+r.Success), true
	}
	return "", false
}

func (n *PushNotifier) Send(ctx context.Context, uid, title, body string) error {
	raw, err := n.store.Get(ctx, repository.JoinPath(usersRoot, uid, models.KeyFCMToken))
	if err != nil {
		return fmt.Errorf("read push token for %s: %w", uid, err)
	}
	token, _ := raw.(string)
	if token == "" {
		n.log.Warnw("push_token_missing", "uid", uid)
		return ErrNoPushToken
	}

	msg := pushMessage{To: token, Notification: pushNotification{Title: title, Body: body}}
	headers := map[string]string{"Authorization": "key=" + n.serverKey}
	resp, err := n.exec.Execute(ctx, "push.send", remote.PostJSON(n.client, n.endpoint, msg, headers))
	if err != nil {
		n.log.Errorw("push_send_failed", "uid", uid, "title", title, "err", err)
		return err
	}
	if reason, rejected := rejection(resp); rejected {
		n.log.Errorw("push_rejected", "uid", uid, "title", title, "reason", reason)
		return remote.Permanent(fmt.Errorf("%w: %s", ErrPushRejected, reason))
	}
	n.log.Infow("push_sent", "uid", uid, "title", title, "response", string(resp))
	return nil
}
