package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/josephgoksu/PhaseWing/internal/utils"
)

const defaultSystem = "You are an expert Business Analyst."

var (
	systemKeys = []string{"systemRole", "system_role", "system"}
	userKeys   = []string{"userInstruction", "user_instruction", "user"}
	toolKeys   = []string{"tools_suggested", "suggestedTools", "suggested_tools", "tools"}
)

// Parse turns a model reply into a Response. The reply may be the flat
// schema, a list of prompts under metaPrompts/meta_prompts, an object keyed
// by phase, or any object holding a system/user pair.
func Parse(reply, phaseKey string) (*Response, error) {
	raw, err := utils.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	root := gjson.Parse(raw)
	if root.IsArray() {
		root = root.Get("0")
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("reply is not an object")
	}

	data, ok := promptData(root, phaseKey)
	if !ok {
		return nil, fmt.Errorf("no prompt found in reply")
	}

	resp := &Response{
		Title:          firstString(data, "title"),
		System:         firstString(data, systemKeys...),
		User:           firstString(data, userKeys...),
		Guardrails:     stringList(data.Get("guardrails")),
		FewShots:       fewShots(data),
		ToolsSuggested: tools(data),
		TelemetryTags:  stringList(data.Get("telemetry_tags")),
	}
	if resp.Title == "" {
		resp.Title = root.Get("title").String()
	}
	if resp.Title == "" {
		resp.Title = fmt.Sprintf("Cohesive %s Prompt", phaseTitle(phaseKey))
	}
	if resp.System == "" {
		resp.System = defaultSystem
	}
	if resp.Guardrails == nil {
		resp.Guardrails = []string{}
	}
	if len(resp.TelemetryTags) == 0 {
		resp.TelemetryTags = []string{phaseKey, "generated"}
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	resp.CohesivePrompt = cohesive(resp.System, resp.User, resp.Guardrails, resp.ToolsSuggested)
	return resp, nil
}

func promptData(root gjson.Result, phaseKey string) (gjson.Result, bool) {
	for _, path := range []string{"metaPrompts.0", "meta_prompts.0", gjson.Escape(phaseKey)} {
		if v := root.Get(path); v.IsObject() {
			return v, true
		}
	}
	if hasPrompt(root) {
		return root, true
	}

	var found gjson.Result
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() && hasPrompt(v) {
			found = v
			return false
		}
		return true
	})
	return found, found.Exists()
}

func hasPrompt(v gjson.Result) bool {
	for _, k := range append(append([]string{}, systemKeys...), userKeys...) {
		if v.Get(k).Exists() {
			return true
		}
	}
	return false
}

func firstString(v gjson.Result, keys ...string) string {
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = v.Get(k).String()
	}
	return strings.TrimSpace(utils.FirstNonEmpty(values...))
}

func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	out := []string{}
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fewShots(data gjson.Result) []FewShot {
	var out []FewShot
	for _, item := range data.Get("few_shots").Array() {
		in, ideal := item.Get("input").String(), item.Get("ideal").String()
		if in == "" || ideal == "" {
			continue
		}
		out = append(out, FewShot{Input: in, Ideal: ideal})
	}
	return out
}

func tools(data gjson.Result) []Tool {
	var list gjson.Result
	for _, k := range toolKeys {
		if v := data.Get(k); v.IsArray() {
			list = v
			break
		}
	}

	var out []Tool
	for _, item := range list.Array() {
		if item.Type == gjson.String {
			if name := strings.TrimSpace(item.String()); name != "" {
				out = append(out, Tool{Name: name})
			}
			continue
		}
		name := firstString(item, "name", "tool")
		if name == "" {
			continue
		}
		t := Tool{Name: name, Purpose: firstString(item, "purpose", "description")}
		if s := item.Get("schema"); s.IsObject() {
			t.Schema = json.RawMessage(s.Raw)
		}
		out = append(out, t)
	}
	return out
}
