package reminder

import (
	"fmt"
	"time"
)

// Appointment is the read-only slice of clinic data the batch needs. The
// medical schema itself belongs to the surrounding scheduling console; this
// engine only looks up who to call and what to say.
type Appointment struct {
	ID          string
	PatientID   string
	PatientName string
	PhoneNumber string
	ScheduledAt time.Time
	Doctor      string
	Specialty   string
	Location    string
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// ReminderMessage renders the spoken reminder for the TTS fallback path.
func ReminderMessage(a Appointment) string {
	day := fmt.Sprintf("%d de %s", a.ScheduledAt.Day(), spanishMonths[a.ScheduledAt.Month()-1])
	msg := fmt.Sprintf("Hola %s, le recordamos su cita del %s a las %s",
		a.PatientName,
		day,
		a.ScheduledAt.Format("3:04 PM"),
	)
	if a.Doctor != "" {
		msg += " con " + a.Doctor
	}
	if a.Specialty != "" {
		msg += " de " + a.Specialty
	}
	if a.Location != "" {
		msg += " en " + a.Location
	}
	return msg + "."
}

// DynamicVariables seeds the conversational agent with appointment context.
func DynamicVariables(a Appointment) map[string]string {
	return map[string]string{
		"patient_name":     a.PatientName,
		"appointment_date": a.ScheduledAt.Format("2006-01-02"),
		"appointment_time": a.ScheduledAt.Format("3:04 PM"),
		"doctor":           a.Doctor,
		"specialty":        a.Specialty,
		"location":         a.Location,
	}
}
