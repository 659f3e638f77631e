package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
)

func (t *Toolset) readHistory(ctx context.Context, args capability.Args) (string, error) {
	query := args.String("query")
	recs, err := t.records.SearchRecords(ctx, userID(args), query, 5)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		if query == "" {
			return "No medical records on file.", nil
		}
		return fmt.Sprintf("No medical records matching '%s'.", query), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d medical record(s):\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "\n[%s] %s (%s)\n%s\n", r.RecordedAt.Format(time.DateOnly), r.Title, r.Kind, r.Content)
	}
	return b.String(), nil
}

func (t *Toolset) getProfile(ctx context.Context, args capability.Args) (string, error) {
	p, err := t.records.Profile(ctx, userID(args))
	if errors.Is(err, store.ErrNotFound) {
		return "No medical profile on file.", nil
	}
	if err != nil {
		return "", err
	}
	return p.Summary(), nil
}

func formatSummaries(ss []store.DailySummary) string {
	var b strings.Builder
	for _, s := range ss {
		fmt.Fprintf(&b, "- %s: %s", s.Day, s.Summary)
		var stats []string
		if s.AvgHR > 0 {
			stats = append(stats, fmt.Sprintf("avg HR %.0f bpm", s.AvgHR))
		}
		if s.AvgSpO2 > 0 {
			stats = append(stats, fmt.Sprintf("avg SpO2 %.0f%%", s.AvgSpO2))
		}
		if s.Steps > 0 {
			stats = append(stats, fmt.Sprintf("%d steps", s.Steps))
		}
		if len(stats) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(stats, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Toolset) getSummaries(ctx context.Context, args capability.Args) (string, error) {
	days := args.IntOr("days", 7)
	ss, err := t.records.Summaries(ctx, userID(args), days)
	if err != nil {
		return "", err
	}
	if len(ss) == 0 {
		return fmt.Sprintf("No daily summaries in the last %d days.", days), nil
	}
	return fmt.Sprintf("Daily summaries (last %d days):\n%s", days, formatSummaries(ss)), nil
}

// vitalStats averages the non-zero measurements of a reading set.
type vitalStats struct {
	Readings  int
	AvgHR     float64
	MaxHR     int
	AvgSpO2   float64
	MinSpO2   int
	AvgSys    float64
	MaxSteps  int
	AvgStress float64
}

func summarize(vs []store.VitalReading) vitalStats {
	st := vitalStats{Readings: len(vs)}
	var hr, spo2, sys, stress []int
	for _, v := range vs {
		if v.HeartRate > 0 {
			hr = append(hr, v.HeartRate)
			st.MaxHR = max(st.MaxHR, v.HeartRate)
		}
		if v.SpO2 > 0 {
			spo2 = append(spo2, v.SpO2)
			if st.MinSpO2 == 0 || v.SpO2 < st.MinSpO2 {
				st.MinSpO2 = v.SpO2
			}
		}
		if v.Systolic > 0 {
			sys = append(sys, v.Systolic)
		}
		if v.Stress > 0 {
			stress = append(stress, v.Stress)
		}
		st.MaxSteps = max(st.MaxSteps, v.Steps)
	}
	st.AvgHR, st.AvgSpO2, st.AvgSys, st.AvgStress = mean(hr), mean(spo2), mean(sys), mean(stress)
	return st
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func (s vitalStats) String() string {
	var parts []string
	if s.AvgHR > 0 {
		parts = append(parts, fmt.Sprintf("avg HR %.0f bpm (max %d)", s.AvgHR, s.MaxHR))
	}
	if s.AvgSpO2 > 0 {
		parts = append(parts, fmt.Sprintf("avg SpO2 %.0f%% (min %d%%)", s.AvgSpO2, s.MinSpO2))
	}
	if s.AvgSys > 0 {
		parts = append(parts, fmt.Sprintf("avg systolic %.0f mmHg", s.AvgSys))
	}
	if s.AvgStress > 0 {
		parts = append(parts, fmt.Sprintf("avg stress %.0f", s.AvgStress))
	}
	if s.MaxSteps > 0 {
		parts = append(parts, fmt.Sprintf("%d steps", s.MaxSteps))
	}
	if len(parts) == 0 {
		return "no measurements"
	}
	return strings.Join(parts, ", ")
}

func (t *Toolset) saveSummary(ctx context.Context, args capability.Args) (string, error) {
	pid := userID(args)
	day := t.now().UTC()
	if d := args.String("date"); d != "" {
		parsed, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return "", &capability.ArgumentError{Format: "YYYY-MM-DD", Provided: d}
		}
		day = parsed
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	all, err := t.records.VitalsSince(ctx, pid, start)
	if err != nil {
		return "", err
	}
	var readings []store.VitalReading
	for _, v := range all {
		if v.RecordedAt.Before(end) {
			readings = append(readings, v)
		}
	}

	st := summarize(readings)
	text := fmt.Sprintf("%d readings: %s", st.Readings, st)
	if st.Readings > 0 {
		last := readings[0]
		a := Assess(Vitals{HeartRate: last.HeartRate, SpO2: last.SpO2, Systolic: last.Systolic})
		text += fmt.Sprintf(". Latest risk %s", a.Risk)
	}
	s := store.DailySummary{
		PatientID: pid,
		Day:       start.Format(time.DateOnly),
		Summary:   text,
		AvgHR:     st.AvgHR,
		AvgSpO2:   st.AvgSpO2,
		Steps:     st.MaxSteps,
	}
	if err := t.records.SaveSummary(ctx, s); err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved summary for %s: %s", s.Day, text), nil
}

func (t *Toolset) analyzeHealth(ctx context.Context, args capability.Args) (string, error) {
	pid := userID(args)
	topic := args.String("topic")

	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "**Health analysis: %s**\n", topic)
	} else {
		b.WriteString("**Health analysis**\n")
	}

	ss, err := t.records.Summaries(ctx, pid, 7)
	if err != nil {
		return "", err
	}
	b.WriteString("\nRecent daily summaries:\n")
	if len(ss) == 0 {
		b.WriteString("- None recorded\n")
	} else {
		b.WriteString(formatSummaries(ss))
	}

	recs, err := t.records.SearchRecords(ctx, pid, topic, 3)
	if err != nil {
		return "", err
	}
	b.WriteString("\nRelated records:\n")
	if len(recs) == 0 {
		b.WriteString("- None found\n")
	}
	for _, r := range recs {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", r.RecordedAt.Format(time.DateOnly), r.Title, truncateText(r.Content, 200))
	}

	if topic != "" {
		guidance, err := t.knowledge.Guidance(ctx, topic)
		if err != nil {
			t.log.Warn().Err(err).Str("topic", topic).Msg("guidance lookup failed")
		} else {
			b.WriteString("\n")
			b.WriteString(guidance)
		}
	}
	return b.String(), nil
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (t *Toolset) watchVitals(ctx context.Context, args capability.Args) (string, error) {
	hours := args.IntOr("hours", 24)
	vs, err := t.records.VitalsSince(ctx, userID(args), t.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return "", err
	}
	if len(vs) == 0 {
		return fmt.Sprintf("No smartwatch readings in the last %d hours.", hours), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Smartwatch vitals (last %d hours, %d readings):\n", hours, len(vs))
	fmt.Fprintf(&b, "- Overall: %s\n", summarize(vs))
	last := vs[0]
	fmt.Fprintf(&b, "- Latest (%s): HR %d bpm, SpO2 %d%%", last.RecordedAt.Format(time.DateTime), last.HeartRate, last.SpO2)
	if last.Systolic > 0 {
		fmt.Fprintf(&b, ", BP %d/%d", last.Systolic, last.Diastolic)
	}
	b.WriteString("\n")
	b.WriteString(Assess(Vitals{HeartRate: last.HeartRate, SpO2: last.SpO2, Systolic: last.Systolic}).String())
	return b.String(), nil
}

func formatGoals(gs []store.Goal) string {
	var b strings.Builder
	for _, g := range gs {
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", g.Priority, g.Description, g.Category)
	}
	return b.String()
}

func (t *Toolset) getGoals(ctx context.Context, args capability.Args) (string, error) {
	gs, err := t.records.ActiveGoals(ctx, userID(args))
	if err != nil {
		return "", err
	}
	if len(gs) == 0 {
		return "No active health goals. Use [SET_GOAL: description] to add one.", nil
	}
	return "Active health goals:\n" + formatGoals(gs), nil
}

// goalCategories maps keywords to goal categories, checked in order.
var goalCategories = []struct {
	category string
	keywords []string
}{
	{"medication", []string{"medication", "pill", "dose", "insulin"}},
	{"exercise", []string{"walk", "run", "step", "exercise", "gym", "swim", "cycle"}},
	{"nutrition", []string{"eat", "diet", "salt", "sugar", "water", "food", "meal"}},
	{"sleep", []string{"sleep", "bed", "nap"}},
	{"stress", []string{"stress", "meditat", "breath", "relax"}},
}

func goalCategory(desc string) string {
	d := strings.ToLower(desc)
	for _, gc := range goalCategories {
		if containsAny(d, gc.keywords...) {
			return gc.category
		}
	}
	return "general"
}

func (t *Toolset) setGoal(ctx context.Context, args capability.Args) (string, error) {
	desc := args.String("description")
	if desc == "" {
		return "", &capability.ArgumentError{Format: "description", Provided: desc}
	}
	cat := goalCategory(desc)
	if _, err := t.records.AddGoal(ctx, store.Goal{PatientID: userID(args), Description: desc, Category: cat}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Goal saved: %s (%s)", desc, cat), nil
}

func (t *Toolset) getBriefing(ctx context.Context, args capability.Args) (string, error) {
	pid := userID(args)
	ss, err := t.records.Summaries(ctx, pid, 7)
	if err != nil {
		return "", err
	}
	gs, err := t.records.ActiveGoals(ctx, pid)
	if err != nil {
		return "", err
	}
	vs, err := t.records.VitalsSince(ctx, pid, t.now().AddDate(0, 0, -7))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("**Weekly Health Briefing**\n\nVitals this week: ")
	if len(vs) == 0 {
		b.WriteString("no readings\n")
	} else {
		st := summarize(vs)
		fmt.Fprintf(&b, "%d readings, %s\n", st.Readings, st)
		last := vs[0]
		a := Assess(Vitals{HeartRate: last.HeartRate, SpO2: last.SpO2, Systolic: last.Systolic})
		fmt.Fprintf(&b, "Latest assessment: %s. %s\n", a.Risk, a.Recommendation())
	}

	b.WriteString("\nDaily summaries:\n")
	if len(ss) == 0 {
		b.WriteString("- None recorded\n")
	} else {
		b.WriteString(formatSummaries(ss))
	}

	b.WriteString("\nActive goals:\n")
	if len(gs) == 0 {
		b.WriteString("- None set\n")
	} else {
		b.WriteString(formatGoals(gs))
	}
	return b.String(), nil
}

// lifestyleGoals derives goals from the profile and vitals, highest priority first.
func lifestyleGoals(p store.Profile, st vitalStats) []store.Goal {
	var out []store.Goal
	add := func(desc, cat, prio string) {
		out = append(out, store.Goal{PatientID: p.Patient.ID, Description: desc, Category: cat, Priority: prio})
	}

	if st.AvgSys > 140 {
		add("Reduce daily salt intake below 5 g", "nutrition", "high")
	}
	if st.AvgSpO2 > 0 && st.AvgSpO2 < 95 {
		add("Practice 10 minutes of deep breathing exercises daily", "stress", "high")
	}
	if st.AvgHR > 90 {
		add("Add a 20 minute relaxation session each evening", "stress", "medium")
	}
	if st.Readings > 0 && st.MaxSteps < 7000 {
		add("Walk at least 7000 steps per day", "exercise", "medium")
	}
	for _, c := range p.Conditions {
		name := strings.ToLower(c.Name)
		switch {
		case containsAny(name, "diabet"):
			add("Limit refined sugar and check blood glucose daily", "nutrition", "high")
		case containsAny(name, "hypertens", "blood pressure"):
			add("Measure blood pressure every morning", "medication", "high")
		case containsAny(name, "asthma", "copd"):
			add("Carry the rescue inhaler at all times", "medication", "high")
		}
	}
	if len(p.Medications) > 0 {
		add("Take every medication on schedule", "medication", "medium")
	}
	if len(out) == 0 {
		add("Keep 7 to 8 hours of sleep each night", "sleep", "low")
	}
	return out
}

func (t *Toolset) lifestylePlan(ctx context.Context, args capability.Args) (string, error) {
	pid := userID(args)
	p, err := t.records.Profile(ctx, pid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	p.Patient.ID = pid
	vs, err := t.records.VitalsSince(ctx, pid, t.now().AddDate(0, 0, -7))
	if err != nil {
		return "", err
	}
	existing, err := t.records.ActiveGoals(ctx, pid)
	if err != nil {
		return "", err
	}
	have := make(map[string]bool, len(existing))
	for _, g := range existing {
		have[strings.ToLower(g.Description)] = true
	}

	st := summarize(vs)
	var b strings.Builder
	b.WriteString("**Lifestyle Plan**\n")
	if st.Readings > 0 {
		fmt.Fprintf(&b, "Based on %d readings this week: %s\n", st.Readings, st)
	}
	b.WriteString("\nGoals:\n")
	added := 0
	for _, g := range lifestyleGoals(p, st) {
		if have[strings.ToLower(g.Description)] {
			fmt.Fprintf(&b, "- [%s] %s (already active)\n", g.Priority, g.Description)
			continue
		}
		if _, err := t.records.AddGoal(ctx, g); err != nil {
			return "", err
		}
		have[strings.ToLower(g.Description)] = true
		added++
		fmt.Fprintf(&b, "- [%s] %s\n", g.Priority, g.Description)
	}
	fmt.Fprintf(&b, "\n%d new goal(s) saved.", added)
	return b.String(), nil
}

func (t *Toolset) simulateECG(_ context.Context, args capability.Args) (string, error) {
	duration := min(max(args.IntOr("duration", 10), 5), 300)
	hr := min(max(args.IntOr("heart_rate", 70), 30), 220)

	rng, unlock := t.randomSource()
	rr := simulateRR(rng, duration, hr)
	unlock()
	return analyzeRR(rr).report(duration), nil
}

func (t *Toolset) awardXP(ctx context.Context, args capability.Args) (string, error) {
	task := args.String("task")
	if task == "" {
		return "", errors.New("no task name given")
	}
	if !t.habitica.Configured() {
		return fmt.Sprintf("Level Up! You gained 10 XP for completing '%s'. (SIMULATION: configure Habitica to track real progress.)", task), nil
	}
	s, err := t.habitica.ScoreHabit(ctx, task)
	if err != nil {
		return "", fmt.Errorf("habitica: %w", err)
	}
	return fmt.Sprintf("Scored '%s' on Habitica! Level %d, %.0f XP, %.1f gold.", task, s.Level, s.Exp, s.Gold), nil
}
