package responder

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DateLayout is the key format for holidays and day orders
const DateLayout = "2006-01-02"

// Calendar holds the headline academic dates
type Calendar struct {
	Reopen   string `toml:"reopen"`
	OddExam  string `toml:"odd_exam"`
	EvenExam string `toml:"even_exam"`
	Vacation string `toml:"vacation"`
}

// Fees holds fee payment deadlines
type Fees struct {
	Tuition     string `toml:"tuition"`
	ExamFee     string `toml:"exam_fee"`
	EvenExamFee string `toml:"even_exam_fee"`
}

// Knowledge is the campus data the responder answers from
type Knowledge struct {
	Calendar      Calendar          `toml:"calendar"`
	InternalTests []string          `toml:"internal_tests"`
	Fees          Fees              `toml:"fees"`
	Events        []string          `toml:"events"`
	Departments   []string          `toml:"departments"`
	Location      string            `toml:"location"`
	Holidays      []string          `toml:"holidays"`
	DayOrders     map[string]string `toml:"day_orders"`
}

// DefaultKnowledge returns the built-in campus data
func DefaultKnowledge() Knowledge {
	return Knowledge{
		Calendar: Calendar{
			Reopen:   "16 June 2025",
			OddExam:  "27 Oct – 12 Nov 2025",
			EvenExam: "13 – 29 April 2026",
			Vacation: "30 April 2026",
		},
		InternalTests: []string{
			"18 – 26 August 2025",
			"1 – 7 October 2025",
			"27 Jan – 4 Feb 2026",
			"11 – 19 March 2026",
		},
		Fees: Fees{
			Tuition:     "17 July 2025",
			ExamFee:     "22 September 2025",
			EvenExamFee: "2 February 2026",
		},
		Events: []string{
			"Orientation Programme: 3, 4 & 7 July 2025",
			"Graduation Day: 24 January 2026",
		},
		Departments: []string{
			"Department of Data Science",
			"Computer Science",
			"Mathematics",
			"Commerce",
			"English",
			"History",
			"Tamil",
			"Biotechnology",
			"Artificial Intelligence (AI)",
			"BBA",
			"BCA",
		},
		Location: "The American College Satellite Campus is located at Chatrapatti, Madurai.",
		Holidays: []string{
			"2025-08-15",
			"2025-10-02",
			"2026-01-14",
			"2026-01-15",
			"2026-01-26",
		},
		DayOrders: map[string]string{
			"2026-01-08": "Day Order II",
			"2026-01-09": "Day Order III",
			"2026-01-12": "Day Order IV",
			"2026-01-13": "Day Order V",
		},
	}
}

// LoadKnowledge reads campus data from a TOML file over the defaults.
// Sections present in the file replace the built-in ones.
func LoadKnowledge(path string) (Knowledge, error) {
	kb := DefaultKnowledge()
	if path == "" {
		return kb, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return kb, fmt.Errorf("failed to read knowledge file: %w", err)
	}

	var override Knowledge
	md, err := toml.Decode(string(data), &override)
	if err != nil {
		return kb, fmt.Errorf("failed to parse knowledge file %s: %w", path, err)
	}

	if md.IsDefined("calendar") {
		kb.Calendar = override.Calendar
	}
	if md.IsDefined("internal_tests") {
		kb.InternalTests = override.InternalTests
	}
	if md.IsDefined("fees") {
		kb.Fees = override.Fees
	}
	if md.IsDefined("events") {
		kb.Events = override.Events
	}
	if md.IsDefined("departments") {
		kb.Departments = override.Departments
	}
	if md.IsDefined("location") {
		kb.Location = override.Location
	}
	if md.IsDefined("holidays") {
		kb.Holidays = override.Holidays
	}
	if md.IsDefined("day_orders") {
		kb.DayOrders = override.DayOrders
	}

	if err := kb.Validate(); err != nil {
		return kb, err
	}
	return kb, nil
}

// Validate checks that every holiday and day order key is a YYYY-MM-DD date
func (k Knowledge) Validate() error {
	for _, h := range k.Holidays {
		if _, err := parseDate(h); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", h, err)
		}
	}
	for d := range k.DayOrders {
		if _, err := parseDate(d); err != nil {
			return fmt.Errorf("invalid day order date %q: %w", d, err)
		}
	}
	return nil
}
