// Package voice routes recognized speech text to canned, stateful responses.
// The router itself is a pure mapping over a state snapshot; the only side
// effect it can request is disabling voice control, which the caller applies
// under the monitor's synchronization.
package voice

import (
	"fmt"
	"strings"
	"time"
)

// Status is the aggregated state snapshot responses are built from.
type Status struct {
	Temperature     float64
	StatusLabel     string
	FanActive       bool
	FanAvailable    bool
	FanCycles       int64
	MaxTemp         float64
	MinTemp         float64
	AlertsTriggered int64
	HistoryCount    int
	UptimeStart     time.Time
	MemoryUsage     float64
	CPULoad         float64
}

// Response is the routed reply plus the one control action a command can
// request.
type Response struct {
	Text           string
	DisableControl bool
}

type rule struct {
	category string
	keywords []string
	respond  func(Status) Response
}

// Router matches free text against an ordered rule list. Categories overlap
// in their keyword sets; the fixed precedence order below is the tie-break
// and must stay stable, or two phrasings of the same question could route
// differently.
type Router struct {
	rules []rule
}

// NewRouter builds the router with its fixed category precedence:
// temperature, fan/cooling, system overview, alerts, memory/performance,
// statistics, help, reports, disable-control, fallback.
func NewRouter() *Router {
	return &Router{
		rules: []rule{
			{
				category: "temperature",
				keywords: []string{"temperature", "temp", "hot", "degrees", "celsius"},
				respond: func(st Status) Response {
					return reply("The current temperature is %.1f degrees. Status: %s.", st.Temperature, st.StatusLabel)
				},
			},
			{
				category: "fan",
				keywords: []string{"fan", "cooling", "cooler", "blower"},
				respond: func(st Status) Response {
					if !st.FanAvailable {
						return reply("The cooling fan is not available; the controller is tracking state only. %d cycles recorded.", st.FanCycles)
					}
					state := "off"
					if st.FanActive {
						state = "on"
					}
					return reply("The cooling fan is currently %s. It has cycled %d times since start.", state, st.FanCycles)
				},
			},
			{
				category: "system",
				keywords: []string{"system", "status", "overview", "how are you", "everything"},
				respond: func(st Status) Response {
					fanState := "off"
					if st.FanActive {
						fanState = "on"
					}
					return reply("System status: temperature %.1f degrees (%s), fan %s, %d alerts triggered, %d readings in history.",
						st.Temperature, st.StatusLabel, fanState, st.AlertsTriggered, st.HistoryCount)
				},
			},
			{
				category: "alerts",
				keywords: []string{"alert", "alarm", "notification", "warning"},
				respond: func(st Status) Response {
					if st.AlertsTriggered == 0 {
						return reply("No alerts have been triggered since the last reset.")
					}
					return reply("%d alerts have been triggered since the last reset. The current status is %s.", st.AlertsTriggered, st.StatusLabel)
				},
			},
			{
				category: "performance",
				keywords: []string{"memory", "performance", "cpu", "load", "ram"},
				respond: func(st Status) Response {
					return reply("Memory usage is %.1f percent and the CPU load average is %.2f.", st.MemoryUsage, st.CPULoad)
				},
			},
			{
				category: "statistics",
				keywords: []string{"statistic", "stats", "maximum", "minimum", "highest", "lowest"},
				respond: func(st Status) Response {
					return reply("Since the last reset: maximum %.1f degrees, minimum %.1f degrees, %d fan cycles, %d alerts.",
						st.MaxTemp, st.MinTemp, st.FanCycles, st.AlertsTriggered)
				},
			},
			{
				category: "help",
				keywords: []string{"help", "what can you", "commands"},
				respond: func(Status) Response {
					return reply("You can ask about the temperature, the fan, system status, alerts, memory and performance, or statistics. Say disable voice control to stop listening.")
				},
			},
			{
				category: "report",
				keywords: []string{"report", "export", "csv", "pdf", "download"},
				respond: func(st Status) Response {
					return reply("Reports can be exported from the dashboard. History currently holds %d readings.", st.HistoryCount)
				},
			},
			{
				category: "disable",
				keywords: []string{"disable voice", "stop listening", "voice off", "turn off voice"},
				respond: func(Status) Response {
					return Response{Text: "Voice control disabled. Re-enable it from the dashboard.", DisableControl: true}
				},
			},
		},
	}
}

// Route maps text to a response. Matching is keyword-based and
// case-insensitive; the first matching category wins.
func (r *Router) Route(text string, st Status) Response {
	normalized := strings.ToLower(text)

	for _, rule := range r.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.respond(st)
			}
		}
	}

	return reply("Sorry, I did not understand that. Say help to hear what you can ask.")
}

// Categories returns the category names in precedence order.
func (r *Router) Categories() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.category)
	}
	return names
}

func reply(format string, args ...any) Response {
	return Response{Text: fmt.Sprintf(format, args...)}
}
