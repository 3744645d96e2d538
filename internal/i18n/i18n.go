// Package i18n renders localized user-facing strings. Rendering is a pure
// function of key and locale; unknown locales fall back to English, unknown
// keys render as the key itself so a missing translation is visible, never
// fatal.
package i18n

import (
	"fmt"
	"log/slog"
)

// DefaultLocale is used until the user picks a language and as fallback.
const DefaultLocale = "en"

// SupportedLocales lists the language packs shipped with the agent.
var SupportedLocales = []string{"en", "es"}

// IsSupported reports whether a language pack exists for the locale.
func IsSupported(locale string) bool {
	_, ok := packs[locale]
	return ok
}

// T renders the string for key in the given locale, applying fmt verbs when
// args are supplied.
func T(locale, key string, args ...interface{}) string {
	pack, ok := packs[locale]
	if !ok {
		pack = packs[DefaultLocale]
	}
	msg, ok := pack[key]
	if !ok {
		if msg, ok = packs[DefaultLocale][key]; !ok {
			slog.Warn("i18n.T: missing translation key", "key", key, "locale", locale)
			return key
		}
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var packs = map[string]map[string]string{
	"en": {
		"language.prompt":  "Welcome! Please choose your language.",
		"language.button":  "Languages",
		"language.english": "English",
		"language.spanish": "Español",
		"language.invalid": "Sorry, I didn't recognize that language. Please pick one from the menu.",

		"main.prompt":       "Hi! How can I help you today?",
		"main.appointments": "Appointments",
		"main.help":         "Help",

		"menu.prompt":     "What would you like to do?",
		"menu.button":     "Options",
		"menu.book":       "Book appointment",
		"menu.reschedule": "Reschedule",
		"menu.cancel":     "Cancel booking",
		"menu.home":       "Main menu",

		"services.prompt": "Please choose a service.",
		"services.button": "Services",
		"services.none":   "No services are available right now. Please try again later.",
		"services.free":   "Free",

		"staff.prompt": "Who would you like to book with?",
		"staff.button": "Staff",
		"staff.none":   "No staff are available for this service. Please choose another service.",

		"month.prompt": "Which month works for you?",
		"month.button": "Months",

		"date.prompt": "Pick a date.",
		"date.button": "Dates",

		"slot.prompt": "Here are the next available times.",
		"slot.button": "Times",
		"slot.none":   "No open times were found in the next few weeks. Please try another date.",

		"common.show_more":   "Show more",
		"common.more_desc":   "See the next page",
		"common.try_again":   "Try again",
		"common.home":        "Main menu",
		"common.aborted":     "Too many invalid attempts. The conversation has been reset; send any message to start over.",
		"error.generic":      "Something went wrong on our side. Please try again.",
		"error.start_over":   "Something went wrong with your session. Let's start over.",

		"ask.name":      "Great! What's your full name?",
		"ask.email":     "Thanks, %s. What's your email address?",
		"ask.phone":     "And your phone number?",
		"invalid.name":  "That name doesn't look right. Please send your full name.",
		"invalid.email": "That doesn't look like a valid email address. Please try again.",
		"invalid.phone": "That doesn't look like a valid phone number. Please try again.",

		"payment.prompt":  "This service costs %s. Please pay using the link below, then tap \"I've paid\".\n%s",
		"payment.paid":    "I've paid",
		"payment.cancel":  "Cancel",
		"payment.unpaid":  "We couldn't confirm your payment yet. Please complete the payment and tap \"I've paid\" again.",
		"payment.aborted": "We couldn't confirm the payment. The booking was not made; send any message to start over.",

		"booking.confirmed":         "Your appointment is confirmed!\nReference: %s",
		"booking.confirmed_link":    "Your appointment is confirmed!\nReference: %s\nDetails: %s",
		"booking.failed":            "We couldn't complete your booking. Please start over from the main menu.",
		"booking.failed_after_paid": "Your payment %s was received, but the booking could not be completed. Our team will contact you; please keep this payment reference.",

		"lookup.cancel_prompt":     "Send the email address or phone number you booked with, and I'll find your appointments to cancel.",
		"lookup.reschedule_prompt": "Send the email address or phone number you booked with, and I'll find your appointments to reschedule.",
		"lookup.invalid":           "Please send a valid email address or phone number.",
		"appointments.none":        "I couldn't find any upcoming appointments for that contact.",
		"appointments.pick":        "Select an appointment.",
		"appointments.button":      "Appointments",

		"cancel.confirmed": "Your appointment %s has been cancelled.",
		"cancel.failed":    "We couldn't cancel that appointment. Please try again from the main menu.",

		"reschedule.slot_prompt": "Pick a new time for %s.",
		"reschedule.confirmed":   "Your appointment has been moved.\nReference: %s",
		"reschedule.failed":      "We couldn't reschedule that appointment. Please try again from the main menu.",

		"help.name":        "I'll connect you with our team. What's your name?",
		"help.email":       "What's your email address?",
		"help.phone":       "What's your phone number?",
		"help.description": "Please describe your issue in a few sentences.",
		"help.done":        "Thanks! Your request has been submitted; our team will reach out shortly.",
		"help.failed":      "We couldn't submit your request right now. Please try again later.",
	},
	"es": {
		"language.prompt":  "¡Bienvenido! Por favor elige tu idioma.",
		"language.button":  "Idiomas",
		"language.english": "English",
		"language.spanish": "Español",
		"language.invalid": "No reconocí ese idioma. Por favor elige uno del menú.",

		"main.prompt":       "¡Hola! ¿En qué puedo ayudarte hoy?",
		"main.appointments": "Citas",
		"main.help":         "Ayuda",

		"menu.prompt":     "¿Qué te gustaría hacer?",
		"menu.button":     "Opciones",
		"menu.book":       "Reservar cita",
		"menu.reschedule": "Reprogramar",
		"menu.cancel":     "Cancelar reserva",
		"menu.home":       "Menú principal",

		"services.prompt": "Por favor elige un servicio.",
		"services.button": "Servicios",
		"services.none":   "No hay servicios disponibles en este momento. Inténtalo más tarde.",
		"services.free":   "Gratis",

		"staff.prompt": "¿Con quién te gustaría reservar?",
		"staff.button": "Personal",
		"staff.none":   "No hay personal disponible para este servicio. Elige otro servicio.",

		"month.prompt": "¿Qué mes te viene bien?",
		"month.button": "Meses",

		"date.prompt": "Elige una fecha.",
		"date.button": "Fechas",

		"slot.prompt": "Estos son los próximos horarios disponibles.",
		"slot.button": "Horarios",
		"slot.none":   "No se encontraron horarios libres en las próximas semanas. Prueba otra fecha.",

		"common.show_more":   "Ver más",
		"common.more_desc":   "Ver la siguiente página",
		"common.try_again":   "Intentar de nuevo",
		"common.home":        "Menú principal",
		"common.aborted":     "Demasiados intentos inválidos. La conversación se ha reiniciado; envía cualquier mensaje para empezar de nuevo.",
		"error.generic":      "Algo salió mal de nuestro lado. Por favor inténtalo de nuevo.",
		"error.start_over":   "Algo salió mal con tu sesión. Empecemos de nuevo.",

		"ask.name":      "¡Perfecto! ¿Cuál es tu nombre completo?",
		"ask.email":     "Gracias, %s. ¿Cuál es tu correo electrónico?",
		"ask.phone":     "¿Y tu número de teléfono?",
		"invalid.name":  "Ese nombre no parece válido. Envía tu nombre completo.",
		"invalid.email": "Eso no parece un correo válido. Inténtalo de nuevo.",
		"invalid.phone": "Eso no parece un teléfono válido. Inténtalo de nuevo.",

		"payment.prompt":  "Este servicio cuesta %s. Paga usando el enlace y luego pulsa \"Ya pagué\".\n%s",
		"payment.paid":    "Ya pagué",
		"payment.cancel":  "Cancelar",
		"payment.unpaid":  "Aún no pudimos confirmar tu pago. Completa el pago y pulsa \"Ya pagué\" otra vez.",
		"payment.aborted": "No pudimos confirmar el pago. La reserva no se realizó; envía cualquier mensaje para empezar de nuevo.",

		"booking.confirmed":         "¡Tu cita está confirmada!\nReferencia: %s",
		"booking.confirmed_link":    "¡Tu cita está confirmada!\nReferencia: %s\nDetalles: %s",
		"booking.failed":            "No pudimos completar tu reserva. Empieza de nuevo desde el menú principal.",
		"booking.failed_after_paid": "Recibimos tu pago %s, pero la reserva no se pudo completar. Nuestro equipo te contactará; guarda esta referencia de pago.",

		"lookup.cancel_prompt":     "Envía el correo o teléfono con el que reservaste y buscaré tus citas para cancelar.",
		"lookup.reschedule_prompt": "Envía el correo o teléfono con el que reservaste y buscaré tus citas para reprogramar.",
		"lookup.invalid":           "Por favor envía un correo o teléfono válido.",
		"appointments.none":        "No encontré citas próximas para ese contacto.",
		"appointments.pick":        "Selecciona una cita.",
		"appointments.button":      "Citas",

		"cancel.confirmed": "Tu cita %s ha sido cancelada.",
		"cancel.failed":    "No pudimos cancelar esa cita. Inténtalo de nuevo desde el menú principal.",

		"reschedule.slot_prompt": "Elige un nuevo horario para %s.",
		"reschedule.confirmed":   "Tu cita ha sido reprogramada.\nReferencia: %s",
		"reschedule.failed":      "No pudimos reprogramar esa cita. Inténtalo de nuevo desde el menú principal.",

		"help.name":        "Te conectaré con nuestro equipo. ¿Cuál es tu nombre?",
		"help.email":       "¿Cuál es tu correo electrónico?",
		"help.phone":       "¿Cuál es tu número de teléfono?",
		"help.description": "Describe tu problema en unas pocas frases.",
		"help.done":        "¡Gracias! Tu solicitud fue enviada; nuestro equipo te contactará pronto.",
		"help.failed":      "No pudimos enviar tu solicitud en este momento. Inténtalo más tarde.",
	},
}
