// Package models is the read-only catalogue of watsonx foundation model ids
// and the generation limits that go with them.
package models

import (
	"slices"
	"strings"
	"time"
)

// Granite
const (
	Granite4HSmall          = "ibm/granite-4-h-small"
	Granite33_8BInstruct    = "ibm/granite-3-3-8b-instruct"
	Granite33_8BInstructNP  = "ibm/granite-3-3-8b-instruct-np"
	Granite32_8BInstruct    = "ibm/granite-3-2-8b-instruct"
	Granite3_2BInstruct     = "ibm/granite-3-2b-instruct"
	Granite31_8BBase        = "ibm/granite-3-1-8b-base"
	Granite3_8BInstruct     = "ibm/granite-3-8b-instruct"
	Granite8BCodeInstruct   = "ibm/granite-8b-code-instruct"
	GraniteGuardian3_8B     = "ibm/granite-guardian-3-8b"
	GraniteVision32_2B      = "ibm/granite-vision-3-2-2b"
	GraniteEmbedding107M    = "ibm/granite-embedding-107m-multilingual"
	GraniteEmbedding278M    = "ibm/granite-embedding-278m-multilingual"
	GraniteTTM1024_96R2     = "ibm/granite-ttm-1024-96-r2"
	GraniteTTM1536_96R2     = "ibm/granite-ttm-1536-96-r2"
	GraniteTTM512_96R2      = "ibm/granite-ttm-512-96-r2"
	Slate125MEnglishRtrvr   = "ibm/slate-125m-english-rtrvr"
	Slate125MEnglishRtrvrV2 = "ibm/slate-125m-english-rtrvr-v2"
	Slate30MEnglishRtrvr    = "ibm/slate-30m-english-rtrvr"
	Slate30MEnglishRtrvrV2  = "ibm/slate-30m-english-rtrvr-v2"
)

// Meta Llama
const (
	Llama31_70BGPTQ               = "meta-llama/llama-3-1-70b-gptq"
	Llama31_8B                    = "meta-llama/llama-3-1-8b"
	Llama32_11BVisionInstruct     = "meta-llama/llama-3-2-11b-vision-instruct"
	Llama32_90BVisionInstruct     = "meta-llama/llama-3-2-90b-vision-instruct"
	Llama33_70BInstruct           = "meta-llama/llama-3-3-70b-instruct"
	Llama3_405BInstruct           = "meta-llama/llama-3-405b-instruct"
	Llama4Maverick17B128EInstruct = "meta-llama/llama-4-maverick-17b-128e-instruct-fp8"
	LlamaGuard3_11BVision         = "meta-llama/llama-guard-3-11b-vision"
)

// Mistral, OpenAI and sentence encoders
const (
	MistralMedium2505              = "mistralai/mistral-medium-2505"
	MistralSmall31_24BInstruct2503 = "mistralai/mistral-small-3-1-24b-instruct-2503"
	GPTOSS120B                     = "openai/gpt-oss-120b"
	CrossEncoderMSMarcoMiniLML12V2 = "cross-encoder/ms-marco-minilm-l-12-v2"
	MultilingualE5Large            = "intfloat/multilingual-e5-large"
	AllMiniLML6V2                  = "sentence-transformers/all-minilm-l6-v2"
)

const (
	DefaultModel = Granite4HSmall

	// MaxTokensLimit is the largest max_new_tokens any preset will send.
	MaxTokensLimit uint32 = 131_072

	DefaultMaxTokens       uint32 = 8192
	QuickResponseMaxTokens uint32 = 2048

	DefaultTimeout       = 120 * time.Second
	LongFormTimeout      = 300 * time.Second
	QuickResponseTimeout = 30 * time.Second

	DefaultAPIVersion = "2023-05-29"
	DefaultIAMURL     = "iam.cloud.ibm.com"
	DefaultAPIURL     = "https://us-south.ml.cloud.ibm.com"
)

// Task is what a model is meant for.
type Task string

const (
	TaskGeneration Task = "generation"
	TaskEmbedding  Task = "embedding"
	TaskRerank     Task = "rerank"
	TaskTimeSeries Task = "time_series"
	TaskGuardrail  Task = "guardrail"
)

// Model is one catalogue entry.
type Model struct {
	ID     string
	Family string
	Task   Task
}

var catalogue = []Model{
	{Granite4HSmall, "granite", TaskGeneration},
	{Granite33_8BInstruct, "granite", TaskGeneration},
	{Granite33_8BInstructNP, "granite", TaskGeneration},
	{Granite32_8BInstruct, "granite", TaskGeneration},
	{Granite3_2BInstruct, "granite", TaskGeneration},
	{Granite31_8BBase, "granite", TaskGeneration},
	{Granite3_8BInstruct, "granite", TaskGeneration},
	{Granite8BCodeInstruct, "granite", TaskGeneration},
	{GraniteGuardian3_8B, "granite", TaskGuardrail},
	{GraniteVision32_2B, "granite", TaskGeneration},
	{GraniteEmbedding107M, "granite", TaskEmbedding},
	{GraniteEmbedding278M, "granite", TaskEmbedding},
	{GraniteTTM1024_96R2, "granite", TaskTimeSeries},
	{GraniteTTM1536_96R2, "granite", TaskTimeSeries},
	{GraniteTTM512_96R2, "granite", TaskTimeSeries},
	{Slate125MEnglishRtrvr, "slate", TaskEmbedding},
	{Slate125MEnglishRtrvrV2, "slate", TaskEmbedding},
	{Slate30MEnglishRtrvr, "slate", TaskEmbedding},
	{Slate30MEnglishRtrvrV2, "slate", TaskEmbedding},
	{Llama31_70BGPTQ, "llama", TaskGeneration},
	{Llama31_8B, "llama", TaskGeneration},
	{Llama32_11BVisionInstruct, "llama", TaskGeneration},
	{Llama32_90BVisionInstruct, "llama", TaskGeneration},
	{Llama33_70BInstruct, "llama", TaskGeneration},
	{Llama3_405BInstruct, "llama", TaskGeneration},
	{Llama4Maverick17B128EInstruct, "llama", TaskGeneration},
	{LlamaGuard3_11BVision, "llama", TaskGuardrail},
	{MistralMedium2505, "mistral", TaskGeneration},
	{MistralSmall31_24BInstruct2503, "mistral", TaskGeneration},
	{GPTOSS120B, "gpt-oss", TaskGeneration},
	{CrossEncoderMSMarcoMiniLML12V2, "cross-encoder", TaskRerank},
	{MultilingualE5Large, "e5", TaskEmbedding},
	{AllMiniLML6V2, "minilm", TaskEmbedding},
}

// All returns a copy of the catalogue.
func All() []Model {
	return slices.Clone(catalogue)
}

// Lookup returns the catalogue entry for id.
func Lookup(id string) (Model, bool) {
	i := slices.IndexFunc(catalogue, func(m Model) bool { return m.ID == id })
	if i < 0 {
		return Model{}, false
	}
	return catalogue[i], true
}

// IsKnown reports whether id is in the catalogue.
func IsKnown(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// ByFamily returns the models of one family, e.g. "granite" or "llama".
func ByFamily(family string) []Model {
	var out []Model
	for _, m := range catalogue {
		if strings.EqualFold(m.Family, family) {
			out = append(out, m)
		}
	}
	return out
}

// GenerationModels returns the models usable for text generation.
func GenerationModels() []Model {
	var out []Model
	for _, m := range catalogue {
		if m.Task == TaskGeneration {
			out = append(out, m)
		}
	}
	return out
}
