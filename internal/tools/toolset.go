// Package tools is the AEGIS capability set. Each tool is a thin adapter
// over one store query or one external service, registered with the
// argument binder that encodes its call format.
package tools

import (
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
)

// Options configures a Toolset.
type Options struct {
	Config     config.IntegrationsConfig
	Records    *store.Records
	HTTPClient *http.Client // nil uses a client with a 15s timeout
	Calendar   *Calendar    // nil builds one from Config.Calendar
	Seed       uint64       // ECG simulation seed; zero seeds from the clock
	Log        *logging.Logger
}

// Toolset holds the collaborators shared by every tool.
type Toolset struct {
	cfg       config.IntegrationsConfig
	records   *store.Records
	knowledge *Knowledge
	maps      *Maps
	twilio    *Twilio
	habitica  *Habitica
	calendar  *Calendar
	log       *logging.Logger
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a toolset.
func New(opts Options) *Toolset {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	cal := opts.Calendar
	if cal == nil {
		cal = &Calendar{cfg: opts.Config.Calendar}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	k := opts.Config.Knowledge
	return &Toolset{
		cfg:     opts.Config,
		records: opts.Records,
		knowledge: &Knowledge{
			hc:          hc,
			medlinePlus: k.MedlinePlusURL,
			pubmed:      k.PubMedURL,
			openFDA:     k.OpenFDAURL,
		},
		maps:     &Maps{hc: hc, cfg: opts.Config.Maps},
		twilio:   &Twilio{hc: hc, cfg: opts.Config.Twilio},
		habitica: &Habitica{hc: hc, cfg: opts.Config.Habitica},
		calendar: cal,
		log:      log.Sub("tools"),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// NewRegistry builds a capability registry holding the full tool set.
func NewRegistry(opts Options) (*capability.Registry, error) {
	reg := capability.NewRegistry()
	if err := New(opts).Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

const (
	sectionKnowledge  = "Medical Knowledge"
	sectionFacilities = "Facilities & Providers"
	sectionPhysicians = "Physicians & Appointments"
	sectionRecords    = "Medical Records & Wellness"
	sectionEmergency  = "Emergency"
)

type alias struct {
	name, target, description string
}

// Register adds every tool and alias to reg.
func (t *Toolset) Register(reg *capability.Registry) error {
	entries := []capability.Entry{
		// knowledge
		{Name: "SEARCH", Signature: "query", Section: sectionKnowledge,
			Description: "patient-friendly MedlinePlus guidance on a condition or treatment",
			Bind:        capability.Whole("query"), Tool: capability.Func(t.search)},
		{Name: "SEARCH_PUBMED", Signature: "query", Section: sectionKnowledge,
			Description: "top PubMed research articles",
			Bind:        capability.Whole("query"), Tool: capability.Func(t.searchPubMed)},
		{Name: "CHECK_SAFETY", Signature: "medication, symptom", Section: sectionKnowledge,
			Description: "whether a symptom is a reported side effect (OpenFDA)",
			Bind:        bindSafety, Tool: capability.Func(t.checkSafety)},

		// facilities
		{Name: "LOCATE", Signature: "facility_type, city", Section: sectionFacilities,
			Description: "nearest hospital, pharmacy, clinic or dentist",
			Bind:        bindLocate, Tool: capability.Func(t.locate)},
		{Name: "FIND_HOSPITAL", Signature: "city", Section: sectionFacilities,
			Description: "hospitals within 10 km, for urgent situations",
			Bind:        t.bindFindHospital, Tool: capability.Func(t.findHospital)},
		{Name: "FIND_PROVIDERS", Signature: "specialty, location", Section: sectionFacilities,
			Description: "doctors of a specialty near a place",
			Bind:        bindProviders, Tool: capability.Func(t.findProviders)},

		// physicians
		{Name: "SEARCH_PHYSICIAN", Signature: "name, clinic", Section: sectionPhysicians,
			Description: "look a doctor up in the patient's contacts, else suggest where to look",
			Bind:        capability.Positional(1, "name, clinic", "name", "clinic"), Tool: capability.Func(t.searchPhysician)},
		{Name: "MY_PHYSICIAN", Signature: "query", Section: sectionPhysicians,
			Description: "search the patient's saved physicians",
			Bind:        capability.WholeForUser("query"), Tool: capability.Func(t.myPhysician)},
		{Name: "SAVE_PHYSICIAN", Signature: "name, specialty, clinic, phone", Section: sectionPhysicians,
			Description: "save a doctor to the patient's contacts",
			Bind:        capability.Positional(4, "name, specialty, clinic, phone", "name", "specialty", "clinic", "phone"),
			Tool:        capability.Func(t.savePhysician)},
		{Name: "BOOK_APPOINTMENT", Signature: "physician_name, time", Section: sectionPhysicians,
			Description: "send a booking request over WhatsApp",
			Bind:        bindBooking, Tool: capability.Func(t.bookAppointment)},
		{Name: "CALL_PHYSICIAN", Signature: "name, phone, time", Section: sectionPhysicians,
			Description: "phone a doctor's office to request an appointment",
			Bind:        capability.Positional(3, "name, phone, time", "name", "phone", "time"),
			Tool:        capability.Func(t.callPhysician)},
		{Name: "ADD_CALENDAR", Signature: "summary, start_iso, end_iso", Section: sectionPhysicians,
			Description: "add an event to Google Calendar",
			Bind:        capability.Positional(3, "summary, start_iso, end_iso", "summary", "start", "end"),
			Tool:        capability.Func(t.addCalendar)},

		// records and wellness
		{Name: "READ_HISTORY", Signature: "query", Section: sectionRecords,
			Description: "search the patient's medical records",
			Bind:        capability.WholeForUser("query"), Tool: capability.Func(t.readHistory)},
		{Name: "GET_PROFILE", Signature: "", Section: sectionRecords,
			Description: "conditions, medications and allergies",
			Bind:        capability.UserOnly(), Tool: capability.Func(t.getProfile)},
		{Name: "GET_SUMMARIES", Signature: "days", Section: sectionRecords,
			Description: "daily health summaries for the last N days (default 7)",
			Bind:        bindDays, Tool: capability.Func(t.getSummaries)},
		{Name: "SAVE_SUMMARY", Signature: "date", Section: sectionRecords,
			Description: "summarise a day's vitals (default today)",
			Bind:        capability.WholeForUser("date"), Tool: capability.Func(t.saveSummary)},
		{Name: "ANALYZE_HEALTH", Signature: "topic", Section: sectionRecords,
			Description: "combine summaries, records and guidance on one topic",
			Bind:        capability.WholeForUser("topic"), Tool: capability.Func(t.analyzeHealth)},
		{Name: "WATCH_VITALS", Signature: "hours", Section: sectionRecords,
			Description: "recent smartwatch vitals (default 24h)",
			Bind:        bindHours, Tool: capability.Func(t.watchVitals)},
		{Name: "GET_GOALS", Signature: "", Section: sectionRecords,
			Description: "active health goals",
			Bind:        capability.UserOnly(), Tool: capability.Func(t.getGoals)},
		{Name: "SET_GOAL", Signature: "description", Section: sectionRecords,
			Description: "add a health goal",
			Bind:        capability.WholeForUser("description"), Tool: capability.Func(t.setGoal)},
		{Name: "GET_BRIEFING", Signature: "", Section: sectionRecords,
			Description: "weekly briefing from summaries, goals and vitals",
			Bind:        capability.UserOnly(), Tool: capability.Func(t.getBriefing)},
		{Name: "LIFESTYLE_PLAN", Signature: "", Section: sectionRecords,
			Description: "derive and save lifestyle goals from the profile and recent vitals",
			Bind:        capability.UserOnly(), Tool: capability.Func(t.lifestylePlan)},
		{Name: "SIMULATE_ECG", Signature: "duration_s, heart_rate", Section: sectionRecords,
			Description: "synthetic ECG with heart rate variability analysis",
			Bind:        bindECG, Tool: capability.Func(t.simulateECG)},
		{Name: "AWARD_XP", Signature: "task_name", Section: sectionRecords,
			Description: "reward a completed health task on Habitica",
			Bind:        capability.Whole("task"), Tool: capability.Func(t.awardXP)},

		// emergency
		{Name: "CHECK_VITALS", Signature: "heart_rate, spo2, systolic_bp", Section: sectionEmergency,
			Description: "threshold assessment of vital signs",
			Bind:        bindVitals, Tool: capability.Func(t.checkVitals)},
		{Name: "EMERGENCY_RESPONSE", Signature: "heart_rate, spo2, systolic_bp, location", Section: sectionEmergency,
			Description: "assess vitals and list the actions a critical result requires",
			Bind:        bindEmergencyResponse, Tool: capability.Func(t.emergencyResponse)},
		{Name: "ALERT", Signature: "message", Section: sectionEmergency,
			Description: "SMS the configured emergency contact",
			Bind:        t.bindAlert, Tool: capability.Func(t.alert)},
		{Name: "DISPATCH_EMERGENCY", Signature: "patient_name, condition, location", Section: sectionEmergency,
			Description: "send an emergency SMS and log the event",
			Bind:        bindDispatch, Tool: capability.Func(t.dispatchEmergency)},
		{Name: "EMERGENCY_CALL", Signature: "reason", Section: sectionEmergency,
			Description: "phone up to three emergency contacts",
			Bind:        bindEmergencyCall, Tool: capability.Func(t.emergencyCall)},
		{Name: "GET_EMERGENCY_CONTACTS", Signature: "", Section: sectionEmergency,
			Description: "list emergency contacts",
			Bind:        capability.UserOnly(), Tool: capability.Func(t.getEmergencyContacts)},
	}

	aliases := []alias{
		{"GUIDANCE", "SEARCH", "clinical guidance (same as SEARCH)"},
		{"LOCATE_FACILITY", "LOCATE", ""},
		{"CALL_EMERGENCY", "EMERGENCY_CALL", ""},
		{"OPTIMIZE_LIFESTYLE", "LIFESTYLE_PLAN", ""},
	}

	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	for _, a := range aliases {
		if err := reg.Alias(a.name, a.target, a.description); err != nil {
			return err
		}
	}
	t.log.Debug().Int("tools", reg.Len()).Msg("tools registered")
	return nil
}

func (t *Toolset) randomSource() (*rand.Rand, func()) {
	t.rngMu.Lock()
	return t.rng, t.rngMu.Unlock
}
