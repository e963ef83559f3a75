// Copyright 2023 UrbanDataLab AG

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package udl implements the client for the UDL.AI public API.
//
// The API serves attribute metadata, per-coordinate feature values, area of
// interest aggregates and address geocoding. All calls are authenticated
// with a bearer token carried by a Client, which is injected into the
// context with UseClient and shared by all operations:
//
//	ctx := udl.UseClient(context.Background(), token)
//	attrs, err := udl.Attributes(ctx)
//
// Each operation issues exactly one HTTP round trip and holds no state
// between calls; identical calls hit the server again. There is no retry or
// backoff inside the client. Callers who need resilience should wrap the
// operations themselves, e.g. by injecting an *http.Client with their own
// retry transport via UseClientHTTP.
//
// Failures are typed: see Kind and KindOf. Local validation failures
// (coordinate ranges, unknown index_by values, empty ID sets) are reported
// as KindInvalidArgument before any network traffic.
package udl
