package language

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"taskpilot/app/core/planner"
)

// extractJSON pulls the first JSON object (or array) out of model output,
// tolerating prose or code fences around it.
func extractJSON(text string) (gjson.Result, error) {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return gjson.Result{}, fmt.Errorf("json not found in response")
	}
	var end int
	if text[start] == '{' {
		end = strings.LastIndex(text, "}")
	} else {
		end = strings.LastIndex(text, "]")
	}
	if end <= start {
		return gjson.Result{}, fmt.Errorf("json not found in response")
	}
	payload := text[start : end+1]
	if !gjson.Valid(payload) {
		return gjson.Result{}, fmt.Errorf("malformed json in response")
	}
	return gjson.Parse(payload), nil
}

func decodeUnderstanding(text string) (planner.TaskUnderstanding, error) {
	j, err := extractJSON(text)
	if err != nil {
		return planner.TaskUnderstanding{}, err
	}
	u := planner.TaskUnderstanding{
		Deliverables: stringList(j.Get("deliverables")),
		Inputs:       stringList(j.Get("inputs")),
		Audience:     strings.TrimSpace(j.Get("audience").String()),
		Timeline:     strings.TrimSpace(j.Get("timeline").String()),
		Constraints:  stringList(j.Get("constraints")),
	}
	if len(u.Deliverables) == 0 {
		return planner.TaskUnderstanding{}, fmt.Errorf("understanding has no deliverables")
	}
	return u, nil
}

func decodeComplexity(text string) (planner.Complexity, error) {
	if j, err := extractJSON(text); err == nil {
		if c := planner.NormalizeComplexity(j.Get("complexity").String()); c != planner.ComplexityUnknown {
			return c, nil
		}
	}
	// No usable JSON; accept a bare classification word.
	if c := planner.NormalizeComplexity(text); c != planner.ComplexityUnknown {
		return c, nil
	}
	return planner.ComplexityUnknown, fmt.Errorf("no complexity classification in response")
}

func decodeQuestions(text string) ([]planner.ClarifyingQuestion, error) {
	j, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	items := j.Get("questions")
	if !items.Exists() && j.IsArray() {
		items = j
	}
	var questions []planner.ClarifyingQuestion
	items.ForEach(func(_, item gjson.Result) bool {
		q := planner.ClarifyingQuestion{
			ID:          strings.TrimSpace(item.Get("id").String()),
			Question:    strings.TrimSpace(item.Get("question").String()),
			AllowCustom: item.Get("allow_custom").Bool(),
		}
		if q.Question == "" {
			return true
		}
		item.Get("options").ForEach(func(_, opt gjson.Result) bool {
			label := strings.TrimSpace(opt.Get("label").String())
			value := strings.TrimSpace(opt.Get("value").String())
			if label == "" {
				label = value
			}
			if value == "" {
				value = label
			}
			if label != "" {
				q.Options = append(q.Options, planner.QuestionOption{Label: label, Value: value})
			}
			return true
		})
		if len(q.Options) == 0 {
			q.AllowCustom = true
		}
		questions = append(questions, q)
		return true
	})
	return questions, nil
}

func decodePlan(text string) (planner.TaskPlan, error) {
	j, err := extractJSON(text)
	if err != nil {
		return planner.TaskPlan{}, err
	}
	plan := planner.TaskPlan{
		Title:   strings.TrimSpace(j.Get("title").String()),
		Summary: strings.TrimSpace(j.Get("summary").String()),
	}
	j.Get("steps").ForEach(func(_, item gjson.Result) bool {
		step := planner.TaskPlanStep{
			Title:        strings.TrimSpace(item.Get("title").String()),
			Description:  strings.TrimSpace(item.Get("description").String()),
			Who:          planner.NormalizeOwner(item.Get("who").String()),
			TimeMinutes:  int(item.Get("time_minutes").Int()),
			Tool:         strings.TrimSpace(item.Get("tool").String()),
			Prompt:       item.Get("prompt").String(),
			PromptCaveat: strings.TrimSpace(item.Get("prompt_caveat").String()),
			WhyThisStep:  strings.TrimSpace(item.Get("why_this_step").String()),
		}
		if step.Title == "" {
			return true
		}
		// A prompt on a plain "you" step is only meaningful with a caveat;
		// absent one, drop the prompt rather than the step.
		if step.Who == planner.OwnerYou && step.Prompt != "" && step.PromptCaveat == "" {
			step.Prompt = ""
		}
		plan.Steps = append(plan.Steps, step)
		return true
	})
	if len(plan.Steps) == 0 {
		return planner.TaskPlan{}, fmt.Errorf("plan has no usable steps")
	}
	if plan.Title == "" {
		plan.Title = "Your task plan"
	}
	plan = planner.NormalizePlan(plan)
	if err := planner.ValidatePlan(plan); err != nil {
		return planner.TaskPlan{}, err
	}
	return plan, nil
}

func stringList(res gjson.Result) []string {
	var out []string
	res.ForEach(func(_, item gjson.Result) bool {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}
