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

package prompt

import (
	"bytes"
	_ "embed"
	"html/template"
	"os"
)

type Prompt interface {
	String() string
}

type FilePrompt struct {
	Type PromptType         `json:"type"`
	Path string             `json:"path"`
	Data any                `json:"data"`
	tpl  *template.Template `json:"-"`
	file []byte             `json:"-"`
}

type PromptType string

const (
	PromptTypePlainText  PromptType = "text"
	PromptTypeDummy      PromptType = "dummy"
	PromptTypeGoTemplate PromptType = "go-template"
)

func (p FilePrompt) String() string {
	if p.tpl == nil {
		return string(p.file)
	}
	var buf = bytes.NewBuffer(nil)
	err := p.tpl.Execute(buf, p.Data)
	if err != nil {
		panic(err)
	}
	return buf.String()
}

func NewFilePrompt(c *FilePrompt) Prompt {
	switch c.Type {
	case PromptTypePlainText:
		bs, err := os.ReadFile(c.Path)
		if err != nil {
			panic(err)
		}
		c.file = bs
		return c
	case PromptTypeDummy:
		return TextPrompt("")
	case PromptTypeGoTemplate:
		tpl, err := template.ParseFiles(c.Path)
		if err != nil {
			panic(err)
		}
		var buf = bytes.NewBuffer(nil)
		err = tpl.Execute(buf, c.Data)
		if err != nil {
			panic(err)
		}
		c.tpl = tpl
		return c
	default:
		panic("unsupported prompt type " + c.Type)
	}
}

type TextPrompt string

func (p TextPrompt) String() string {
	return string(p)
}

func NewTextPrompt(content string) Prompt {
	return TextPrompt(content)
}

// Council role instructions. The files carry {state_key} references
// that the workflow renders from shared state before each call.

//go:embed council_system.md
var PromptCouncilSystem string

//go:embed data_finder.md
var PromptDataFinder string

//go:embed cmo.md
var PromptCMO string

//go:embed cfo.md
var PromptCFO string

//go:embed ops.md
var PromptOps string

//go:embed ceo.md
var PromptCEO string

//go:embed debate_logger.md
var PromptDebateLogger string

//go:embed final_reporter.md
var PromptFinalReporter string

// DeliberateThinkingAppendix is appended to the CEO system prompt when
// the sequential-thinking toolset is attached.
const DeliberateThinkingAppendix = `# Deliberate Reasoning (active)

Before writing the verdict, use the sequential_thinking tool to weigh the marketing, finance and operations positions step by step. Keep the thought steps short. When the analysis converges, stop calling tools and output the decision JSON only.`
