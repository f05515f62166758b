// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"

	"github.com/jeranaias/flybuddy/internal/transport"
)

// NoticeKind classifies a Notice.
type NoticeKind string

const (
	NoticeTimeout  NoticeKind = "timeout"
	NoticeRemote   NoticeKind = "remote"
	NoticeNetwork  NoticeKind = "network"
	NoticeOffline  NoticeKind = "offline"
	NoticeCanceled NoticeKind = "canceled"
	NoticeStorage  NoticeKind = "storage"
)

// Notice is a non-fatal problem the presentation layer should show the user.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// noticeForTransport maps a Send failure to a Notice.
func noticeForTransport(err error) Notice {
	var remote *transport.RemoteError
	switch {
	case errors.Is(err, transport.ErrTimeout):
		return Notice{Kind: NoticeTimeout, Message: "The travel service did not answer in time.", Err: err}
	case errors.Is(err, transport.ErrOffline):
		return Notice{Kind: NoticeOffline, Message: "Offline mode is on; the chat endpoint is not local.", Err: err}
	case errors.Is(err, context.Canceled):
		return Notice{Kind: NoticeCanceled, Message: "Request canceled.", Err: err}
	case errors.As(err, &remote):
		return Notice{Kind: NoticeRemote, Message: "The travel service returned an error.", Err: err}
	default:
		return Notice{Kind: NoticeNetwork, Message: "Could not reach the travel service.", Err: err}
	}
}

func noticeForStorage(err error) Notice {
	return Notice{Kind: NoticeStorage, Message: "Conversation history could not be saved.", Err: err}
}
