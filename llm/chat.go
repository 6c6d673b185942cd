/**
 * Copyright 2026 ByteDance Inc.
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

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/boardroom/internal/utils"
	"github.com/cloudwego/boardroom/llm/log"
	"github.com/cloudwego/boardroom/llm/prompt"
	"github.com/cloudwego/eino/schema"
)

var _ Generator = (*ChatAgent)(nil)

// ChatAgent is a single-turn generator without tools. Council roles
// that only argue over state (CMO, CFO, CEO, reporter) use this; roles
// that touch the store go through ReactAgent.
type ChatAgent struct {
	name    string
	opts    ChatAgentOptions
	retries int
	timeout time.Duration
}

type ChatAgentOptions struct {
	SysPrompt prompt.Prompt `json:"-"`
	Model     ChatModel     `json:"-"`
	Retries   int           `json:"retries"` // Number of retries, default: 3
	Timeout   time.Duration `json:"timeout"` // Request timeout, default: 600s
}

func NewChatAgent(name string, opts ChatAgentOptions) *ChatAgent {
	if opts.Model == nil {
		panic("chat model must be set")
	}
	if opts.SysPrompt == nil {
		opts.SysPrompt = prompt.NewTextPrompt("")
	}
	retries := opts.Retries
	if retries == 0 {
		retries = 3
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 600 * time.Second
	}
	return &ChatAgent{
		name:    name,
		opts:    opts,
		retries: retries,
		timeout: timeout,
	}
}

func (p *ChatAgent) Call(ctx context.Context, input string) (string, error) {
	log.Debug("[User:%s] %s", p.name, input)
	inputMsgs := appendSysPrompt(p.opts.SysPrompt.String(), []*schema.Message{schema.UserMessage(input)})

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying LLM call (attempt %d/%d)...", attempt+1, p.retries+1)
			time.Sleep(retryWait(attempt))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		out, err := p.opts.Model.Generate(attemptCtx, inputMsgs)
		if err == nil {
			return out.Content, nil
		}

		lastErr = err
		if !isRetryableErr(err) {
			log.Error("Non-retryable error occurred: %v", err)
			return "", utils.WrapError(err, "ChatAgent RoundTrip error")
		}

		log.Info("Retryable error occurred (attempt %d/%d): %v", attempt+1, p.retries+1, err)
	}

	return "", utils.WrapError(fmt.Errorf("failed after %d retries: %w", p.retries+1, lastErr), "ChatAgent RoundTrip error")
}
