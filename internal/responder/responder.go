// Package responder answers campus questions with keyword rules over a Knowledge base.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	greetingReply = "Hello, how can I help you!"
	fallbackReply = "Sorry, I didn't understand. Type 'help' to see available options."

	helpReply = "📌 You can ask me:\n" +
		"- academic calendar\n" +
		"- today date\n" +
		"- today day order\n" +
		"- next day order\n" +
		"- exam date\n" +
		"- internal test\n" +
		"- fee payment date\n" +
		"- departments\n" +
		"- campus location\n" +
		"- holidays\n" +
		"- events"
)

// Answer is a reply plus the rule that produced it
type Answer struct {
	Text string
	Rule string
	// Cacheable is false for replies that depend on the current date
	Cacheable bool
}

type rule struct {
	name     string
	volatile bool
	match    func(msg string) bool
	reply    func(r *Responder, now time.Time) string
}

func contains(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

func exact(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if msg == w {
				return true
			}
		}
		return false
	}
}

// rules are evaluated in order; the first match wins
var rules = []rule{
	{name: "greeting", match: exact("hi", "hello", "hai", "hey"),
		reply: func(*Responder, time.Time) string { return greetingReply }},
	{name: "help", match: contains("help"),
		reply: func(*Responder, time.Time) string { return helpReply }},
	{name: "today_date", volatile: true, match: contains("today date"),
		reply: func(_ *Responder, now time.Time) string { return now.Format("📅 02 January 2006 (Monday)") }},
	{name: "today_day_order", volatile: true, match: contains("today day order"),
		reply: (*Responder).todayDayOrder},
	{name: "next_day_order", volatile: true, match: contains("next day order"),
		reply: (*Responder).nextDayOrder},
	{name: "academic_calendar", match: contains("academic calendar"),
		reply: (*Responder).academicCalendar},
	{name: "internal_tests", match: contains("internal"),
		reply: func(r *Responder, _ time.Time) string { return block("📝 Internal Tests:", r.kb.InternalTests) }},
	{name: "exam_dates", match: contains("exam"),
		reply: (*Responder).examDates},
	{name: "fees", match: contains("fee", "payment"),
		reply: (*Responder).feeDates},
	{name: "departments", match: contains("department"),
		reply: func(r *Responder, _ time.Time) string { return block("🏢 Departments:", r.kb.Departments) }},
	{name: "location", match: contains("location", "where"),
		reply: func(r *Responder, _ time.Time) string { return "📍 " + r.kb.Location }},
	{name: "holidays", match: contains("holiday"),
		reply: func(r *Responder, _ time.Time) string { return block("🎉 Holidays:", r.kb.Holidays) }},
	{name: "events", match: contains("event"),
		reply: func(r *Responder, _ time.Time) string { return block("🎊 Events:", r.kb.Events) }},
}

// Responder produces replies from campus knowledge
type Responder struct {
	kb       Knowledge
	holidays map[string]bool
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Responder
type Option func(*Responder)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Responder) { r.now = now }
}

// New creates a Responder over kb
func New(kb Knowledge, logger *slog.Logger, opts ...Option) (*Responder, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := kb.Validate(); err != nil {
		return nil, err
	}

	r := &Responder{
		kb:       kb,
		holidays: make(map[string]bool, len(kb.Holidays)),
		now:      time.Now,
		logger:   logger,
	}
	for _, h := range kb.Holidays {
		r.holidays[h] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Normalize lower-cases and trims a message the way rules see it
func Normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

// Reply answers message with the first matching rule
func (r *Responder) Reply(ctx context.Context, message string) Answer {
	msg := Normalize(message)
	now := r.now()

	for _, rl := range rules {
		if rl.match(msg) {
			r.logger.DebugContext(ctx, "rule matched", "rule", rl.name)
			return Answer{Text: rl.reply(r, now), Rule: rl.name, Cacheable: !rl.volatile}
		}
	}

	r.logger.DebugContext(ctx, "no rule matched", "message_length", len(msg))
	return Answer{Text: fallbackReply, Rule: "fallback", Cacheable: true}
}

// NextWorkingDay returns the first day after t that is not a holiday
func (r *Responder) NextWorkingDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for r.holidays[next.Format(DateLayout)] {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (r *Responder) todayDayOrder(now time.Time) string {
	if order, ok := r.kb.DayOrders[now.Format(DateLayout)]; ok {
		return order
	}
	return "Day order not available"
}

func (r *Responder) nextDayOrder(now time.Time) string {
	next := r.NextWorkingDay(now)
	order, ok := r.kb.DayOrders[next.Format(DateLayout)]
	if !ok {
		order = "Not available"
	}
	return fmt.Sprintf("%s → %s", next.Format("02 January 2006"), order)
}

func (r *Responder) academicCalendar(time.Time) string {
	c := r.kb.Calendar
	return "📅 Academic Calendar:\n" +
		"• College Reopens: " + c.Reopen + "\n" +
		"• Odd Semester Exams: " + c.OddExam + "\n" +
		"• Even Semester Exams: " + c.EvenExam + "\n" +
		"• Vacation Starts: " + c.Vacation
}

func (r *Responder) examDates(time.Time) string {
	return "🧪 Exam Dates:\n" +
		"• Odd Semester: " + r.kb.Calendar.OddExam + "\n" +
		"• Even Semester: " + r.kb.Calendar.EvenExam
}

func (r *Responder) feeDates(time.Time) string {
	f := r.kb.Fees
	return "💳 Fee Payment Dates:\n" +
		"• Tuition Fee: " + f.Tuition + "\n" +
		"• Exam Fee: " + f.ExamFee + "\n" +
		"• Even Semester Exam Fee: " + f.EvenExamFee
}

func block(title string, lines []string) string {
	return title + "\n" + strings.Join(lines, "\n")
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
