package ui

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// supportedLanguages is ordered by preference; the first entry is the fallback.
var supportedLanguages = []language.Tag{language.English, language.German}

var languageMatcher = language.NewMatcher(supportedLanguages)

// messages maps a message key to its English and German text.
var messages = map[string][2]string{
	// Workflow steps.
	"step1.title":           {"General onboarding", "Allgemeines Onboarding"},
	"step2_microsoft.title": {"Microsoft partner setup", "Microsoft-Partner-Einrichtung"},
	"step2_aws.title":       {"AWS partner setup", "AWS-Partner-Einrichtung"},
	"step2_google.title":    {"Google Cloud partner setup", "Google-Cloud-Partner-Einrichtung"},
	"step3.title":           {"Activation", "Aktivierung"},

	"step1.kickoff.label":                   {"Kickoff call", "Kickoff-Termin"},
	"step1.kickoff.instructions":            {"Schedule and hold the kickoff call with your partner manager.", "Vereinbaren und führen Sie den Kickoff-Termin mit Ihrem Partnermanager durch."},
	"step1.company_profile.label":           {"Company profile", "Unternehmensprofil"},
	"step1.company_profile.instructions":    {"Enter your legal company name and VAT ID and confirm the billing address.", "Tragen Sie Firmennamen und USt-IdNr. ein und bestätigen Sie die Rechnungsadresse."},
	"step1.reseller_agreement.label":        {"Reseller agreement", "Reseller-Vertrag"},
	"step1.reseller_agreement.instructions": {"The signed agreement is registered automatically once it arrives.", "Der unterschriebene Vertrag wird nach Eingang automatisch erfasst."},
	"step1.ion_account.label":               {"ION customer account", "ION-Kundenkonto"},
	"step1.ion_account.instructions":        {"Your ION customer ID is filled in when the account is provisioned.", "Ihre ION-Kundennummer wird bei der Kontoanlage eingetragen."},

	"step2_microsoft.mpn_id.label":                       {"Partner ID", "Partner-ID"},
	"step2_microsoft.mpn_id.instructions":                {"Enter your Microsoft AI Cloud Partner Program ID.", "Tragen Sie Ihre Microsoft AI Cloud Partner Program ID ein."},
	"step2_microsoft.partner_center.label":               {"Partner Center linked", "Partner Center verknüpft"},
	"step2_microsoft.partner_center.instructions":        {"Link your Partner Center tenant with our distributor account.", "Verknüpfen Sie Ihren Partner-Center-Mandanten mit unserem Distributorkonto."},
	"step2_microsoft.reseller_relationship.label":        {"Reseller relationship", "Reseller-Beziehung"},
	"step2_microsoft.reseller_relationship.instructions": {"Accept the indirect reseller invitation in Partner Center.", "Nehmen Sie die Einladung als indirekter Reseller im Partner Center an."},
	"step2_microsoft.gdap.label":                         {"GDAP", "GDAP"},
	"step2_microsoft.gdap.instructions":                  {"Send the GDAP request and confirm once it is approved.", "Senden Sie die GDAP-Anfrage und bestätigen Sie die Freigabe."},

	"step2_aws.aws_account.label":             {"AWS account", "AWS-Konto"},
	"step2_aws.aws_account.instructions":      {"Enter the 12-digit ID of your AWS payer account.", "Tragen Sie die 12-stellige ID Ihres AWS-Zahlerkontos ein."},
	"step2_aws.apn_registration.label":        {"APN registration", "APN-Registrierung"},
	"step2_aws.apn_registration.instructions": {"Register your company in the AWS Partner Network.", "Registrieren Sie Ihr Unternehmen im AWS Partner Network."},
	"step2_aws.billing_transfer.label":        {"Billing transfer", "Abrechnungsübertragung"},
	"step2_aws.billing_transfer.instructions": {"Billing transfer and payer setup are confirmed by our AWS team.", "Abrechnungsübertragung und Zahlerkonto werden von unserem AWS-Team bestätigt."},

	"step2_google.billing_account.label":          {"Billing account", "Rechnungskonto"},
	"step2_google.billing_account.instructions":   {"Enter the ID of your Google Cloud billing account.", "Tragen Sie die ID Ihres Google-Cloud-Rechnungskontos ein."},
	"step2_google.partner_advantage.label":        {"Partner Advantage", "Partner Advantage"},
	"step2_google.partner_advantage.instructions": {"Enroll in Google Cloud Partner Advantage.", "Melden Sie sich bei Google Cloud Partner Advantage an."},
	"step2_google.reseller_domain.label":          {"Reseller domain", "Reseller-Domain"},
	"step2_google.reseller_domain.instructions":   {"Enter your reseller domain; verification is confirmed by our team.", "Tragen Sie Ihre Reseller-Domain ein; die Verifizierung bestätigt unser Team."},

	"step3.first_order.label":                {"First order", "Erste Bestellung"},
	"step3.first_order.instructions":         {"Your first order is detected automatically.", "Ihre erste Bestellung wird automatisch erkannt."},
	"step3.training.label":                   {"Sales and tech training", "Vertriebs- und Techniktraining"},
	"step3.training.instructions":            {"Complete the sales and technical enablement sessions.", "Schließen Sie die Vertriebs- und Technikschulungen ab."},
	"step3.marketplace_listing.label":        {"Marketplace listing", "Marketplace-Eintrag"},
	"step3.marketplace_listing.instructions": {"Enter the URL of your marketplace listing.", "Tragen Sie die URL Ihres Marketplace-Eintrags ein."},
	"step3.go_live.label":                    {"Go-live", "Go-live"},
	"step3.go_live.instructions":             {"Go-live is approved by your partner manager.", "Der Go-live wird von Ihrem Partnermanager freigegeben."},

	"field.legal_name":      {"Legal company name", "Firmenname"},
	"field.vat_id":          {"VAT ID", "USt-IdNr."},
	"field.billing_address": {"Billing address confirmed", "Rechnungsadresse bestätigt"},
	"field.gdap_sent":       {"GDAP request sent", "GDAP-Anfrage gesendet"},
	"field.gdap_approved":   {"GDAP approved", "GDAP freigegeben"},
	"field.reseller_domain": {"Reseller domain", "Reseller-Domain"},
	"field.domain_verified": {"Domain verified", "Domain verifiziert"},

	// Page text.
	"ui.app_name":                     {"Partner Portal", "Partnerportal"},
	"ui.nav.dashboard":                {"Dashboard", "Übersicht"},
	"ui.nav.logout":                   {"Logout", "Abmelden"},
	"ui.login.title":                  {"Sign in", "Anmelden"},
	"ui.login.hint":                   {"We will email you a one-time code.", "Wir senden Ihnen einen Einmalcode per E-Mail."},
	"ui.login.email":                  {"Email address", "E-Mail-Adresse"},
	"ui.login.send":                   {"Send code", "Code senden"},
	"ui.verify.title":                 {"Enter your code", "Code eingeben"},
	"ui.verify.hint":                  {"We sent a code to %s.", "Wir haben einen Code an %s gesendet."},
	"ui.verify.code":                  {"One-time code", "Einmalcode"},
	"ui.verify.submit":                {"Verify", "Bestätigen"},
	"ui.verify.restart":               {"Use a different email", "Andere E-Mail verwenden"},
	"ui.dashboard.title":              {"Onboardings", "Onboardings"},
	"ui.dashboard.pick":               {"Choose an onboarding record", "Onboarding auswählen"},
	"ui.dashboard.empty":              {"No onboarding records found.", "Keine Onboardings gefunden."},
	"ui.col.company":                  {"Company", "Unternehmen"},
	"ui.col.client_id":                {"Client ID", "Kundennummer"},
	"ui.col.manufacturer":             {"Manufacturer", "Hersteller"},
	"ui.col.progress":                 {"Progress", "Fortschritt"},
	"ui.col.updated":                  {"Updated", "Aktualisiert"},
	"ui.detail.overall":               {"Overall progress", "Gesamtfortschritt"},
	"ui.detail.locked":                {"This step unlocks once all previous steps are complete.", "Dieser Schritt wird freigeschaltet, sobald alle vorherigen Schritte abgeschlossen sind."},
	"ui.detail.timeline":              {"Timeline", "Zeitachse"},
	"ui.detail.save":                  {"Save", "Speichern"},
	"ui.detail.mark_done":             {"Mark as done", "Als erledigt markieren"},
	"ui.detail.mark_open":             {"Reopen", "Wieder öffnen"},
	"ui.detail.notes":                 {"Notes", "Notizen"},
	"ui.detail.ion":                   {"ION orders and subscriptions", "ION-Bestellungen und -Abonnements"},
	"ui.state.completed":              {"Completed", "Erledigt"},
	"ui.state.open":                   {"Open", "Offen"},
	"ui.state.disabled":               {"Waiting for previous substep", "Wartet auf vorherigen Teilschritt"},
	"ui.completed_by.USER":            {"You", "Sie"},
	"ui.completed_by.EXTERNAL_SYSTEM": {"Automatic", "Automatisch"},
	"ui.notes.title":                  {"Notes", "Notizen"},
	"ui.notes.empty":                  {"No notes yet.", "Noch keine Notizen."},
	"ui.notes.add":                    {"Add note", "Notiz hinzufügen"},
	"ui.ion.orders":                   {"Orders", "Bestellungen"},
	"ui.ion.subscriptions":            {"Subscriptions", "Abonnements"},
	"ui.ion.empty":                    {"Nothing here yet.", "Noch keine Einträge."},
	"ui.col.order":                    {"Order", "Bestellung"},
	"ui.col.product":                  {"Product", "Produkt"},
	"ui.col.quantity":                 {"Quantity", "Menge"},
	"ui.col.status":                   {"Status", "Status"},
	"ui.col.total":                    {"Total", "Summe"},
	"ui.col.ordered":                  {"Ordered", "Bestellt"},
	"ui.col.subscription":             {"Subscription", "Abonnement"},
	"ui.col.seats":                    {"Seats", "Lizenzen"},
	"ui.col.billing":                  {"Billing", "Abrechnung"},
	"ui.col.renews":                   {"Renews", "Verlängerung"},
	"ui.back":                         {"Back to overview", "Zurück zur Übersicht"},
	"ui.error.title":                  {"Error", "Fehler"},
	"ui.error.not_found":              {"The requested onboarding does not exist.", "Das angeforderte Onboarding existiert nicht."},
	"ui.error.forbidden":              {"You do not have access to this onboarding.", "Sie haben keinen Zugriff auf dieses Onboarding."},
	"ui.error.backend":                {"The record service is unavailable. Please try again.", "Der Datendienst ist nicht erreichbar. Bitte versuchen Sie es erneut."},
	"ui.error.invalid_email":          {"Please enter a valid email address.", "Bitte geben Sie eine gültige E-Mail-Adresse ein."},
	"ui.error.invalid_code":           {"The code is invalid or expired.", "Der Code ist ungültig oder abgelaufen."},
	"ui.error.code_format":            {"The code consists of 4 to 8 digits.", "Der Code besteht aus 4 bis 8 Ziffern."},
	"ui.error.rate_limited":           {"Too many attempts. Please wait and try again.", "Zu viele Versuche. Bitte warten Sie kurz."},
	"ui.error.gated":                  {"This item cannot be completed yet.", "Dieser Punkt kann noch nicht abgeschlossen werden."},
	"ui.error.invalid_value":          {"The value is not valid for this field.", "Der Wert ist für dieses Feld ungültig."},
	"ui.error.note":                   {"Please enter a note of at most 2000 characters.", "Bitte geben Sie eine Notiz mit höchstens 2000 Zeichen ein."},
}

var messageCatalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, texts := range messages {
		for i, tag := range supportedLanguages {
			if err := b.SetString(tag, key, texts[i]); err != nil {
				panic("i18n: " + key + ": " + err.Error())
			}
		}
	}
	return b
}

// Translator resolves message keys for one language.
type Translator struct {
	Lang    language.Tag
	printer *message.Printer
}

// NewTranslator returns a Translator for tag.
func NewTranslator(tag language.Tag) *Translator {
	return &Translator{Lang: tag, printer: message.NewPrinter(tag, message.Catalog(messageCatalog))}
}

// T returns the text for key, formatted with args. Unknown keys are returned as is.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// MatchLanguage picks the best supported language for an Accept-Language
// header. Unparseable or unsupported headers select English.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supportedLanguages[0]
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return supportedLanguages[0]
	}
	return supportedLanguages[idx]
}

// translatorFor returns the Translator for the request's Accept-Language.
func translatorFor(r *http.Request) *Translator {
	return NewTranslator(MatchLanguage(r.Header.Get("Accept-Language")))
}
