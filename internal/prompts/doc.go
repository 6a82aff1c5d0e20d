// Package prompts contains the LLM prompt templates used by the agent.
//
// Prompt text is Go code rather than config files because it is program
// logic: the templates interpolate the tool vocabulary and the current
// date, and tests check that they stay in sync with the tools package.
//
// Each stage of a turn gets its own file (intent.go, decision.go,
// response.go) with an exported function that returns the fully
// interpolated system prompt.
package prompts
