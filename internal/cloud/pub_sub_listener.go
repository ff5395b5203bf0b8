// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener runs a command for every message on a subscription. The
// message body is placed in cor.CtxIn; the message is acked when the command
// leaves no errors and nacked otherwise, so the subscription's retry and
// dead-letter policy decides what happens next.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	mu           sync.Mutex
	command      cor.Command
}

// NewPubSubListener binds a listener to a subscription.
//
// Inputs:
//   - pubsubClient: An initialized Pub/Sub client.
//   - subscriptionID: The subscription to receive from.
//   - command: Executed once per message; may be nil and attached later with SetCommand.
//
// Outputs:
//   - *PubSubListener: The listener, not yet receiving.
//   - error: Always nil; kept for symmetry with the other constructors.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)
	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches the command if none is set yet.
func (m *PubSubListener) SetCommand(command cor.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.command == nil {
		m.command = command
	}
}

func (m *PubSubListener) getCommand() cor.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.command
}

// Listen receives in the background until ctx is cancelled.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening", "subscription", m.subscription.ID())
	go func() {
		tracer := otel.Tracer("message-listener")
		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(msgCtx, "receive-message")
			defer span.End()
			span.SetAttributes(
				attribute.String("message_id", msg.ID),
				attribute.Int("size", len(msg.Data)),
			)

			command := m.getCommand()
			if command == nil {
				slog.Warn("no command attached, nacking", "subscription", m.subscription.ID(), "message_id", msg.ID)
				span.SetStatus(codes.Error, "no command")
				msg.Nack()
				return
			}

			chainCtx := cor.NewContext(spanCtx)
			defer chainCtx.Close()
			chainCtx.Add(cor.CtxIn, string(msg.Data))
			command.Execute(chainCtx)

			if err := chainCtx.Err(); err != nil {
				span.SetStatus(codes.Error, "failed")
				span.RecordError(err)
				slog.Error("message handling failed", "subscription", m.subscription.ID(), "message_id", msg.ID, "error", err)
				msg.Nack()
				return
			}
			span.SetStatus(codes.Ok, "success")
			msg.Ack()
		})
		if err != nil {
			slog.Error("error receiving data", "subscription", m.subscription.ID(), "error", err)
		}
	}()
}
