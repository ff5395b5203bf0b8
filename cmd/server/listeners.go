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

package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/commands"
)

// RenderRequestsListener is the topic_subscriptions key of the render
// request subscription.
const RenderRequestsListener = "RenderRequests"

// SetupListeners attaches a RenderRequestReader to the RenderRequests
// subscription and starts receiving. Without that subscription the server
// accepts HTTP submissions only.
func SetupListeners(ctx context.Context, cloudClients *cloud.ServiceClients, submitter commands.Submitter) {
	listener, ok := cloudClients.PubSubListeners[RenderRequestsListener]
	if !ok {
		slog.Info("no render request subscription configured, HTTP submission only")
		return
	}
	listener.SetCommand(commands.NewRenderRequestReader("render-request-reader", submitter))
	listener.Listen(ctx)
}
