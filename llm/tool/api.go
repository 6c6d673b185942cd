/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tool exposes the retail store to agents as typed tools.
// Tool argument mistakes the model can correct (an unknown product id)
// come back in-band in the response's error field; infrastructure
// failures (store errors, permission denials) are returned as Go
// errors so the agent run fails.
package tool

import (
	"encoding/json"

	etool "github.com/cloudwego/eino/components/tool"
	"github.com/invopop/jsonschema"
)

// Tool is anything an agent's tool node can take.
type Tool interface {
	etool.BaseTool
}

// GetJSONSchema reflects the request struct into a raw JSON schema for
// MCP registration. Schemas are built from static types, so reflection
// errors panic.
func GetJSONSchema(v any) json.RawMessage {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)
	js, err := s.MarshalJSON()
	if err != nil {
		panic(err)
	}
	return js
}
