package i18n

var labelsCS = map[string]string{
	"step.submit":    "Pokračovat",
	"step.reset":     "Začít znovu",
	"step.exception": "Chyba",

	"step.error.already_installed":          "Tento krok již byl proveden.",
	"step.error.panic":                      "Neočekávaná chyba: %v",
	"step.error.db.connect.error":           "nepodařilo se připojit k databázi, chyba: %v",
	"step.error.read_failed":                "Nepodařilo se načíst %v. Zkontrolujte přístupová práva.",
	"step.error.config.invalid":             "Konfigurační soubor je neplatný: %v",
	"step.error.config.missing":             "Konfigurační soubor %v neexistuje.",
	"step.error.config.environment.missing": "Konfigurační soubor nedefinuje prostředí %v.",

	"language.title": "Jazyk",
	"language.text":  "Zvolte jazyk:",

	"config.title":                   "Konfigurace systému",
	"config.text":                    "Tento krok vygeneruje / přepíše soubor %v.",
	"config.error.db.driver.invalid": "nepodporovaný typ databáze",
	"config.error.db.port.invalid":   "neplatný port",
	"config.error.db.name.empty":     "název databáze nesmí být prázdný",
	"config.error.db.prefix.empty":   "prefix nesmí být prázdný",
	"config.error.db.prefix.invalid": "prefix obsahuje nepovolené znaky",
	"config.error.db.connect.error":  "nepodařilo se připojit k databázi, chyba: %v",
	"config.error.db.create.error":   "nepodařilo se vytvořit databázi (možná ji bude nutné vytvořit manuálně ve správě vašeho webhostingu): %v",
	"config.error.write_failed":      "Nepodařilo se zapsat %v. Zkontrolujte přístupová práva.",
	"config.db":                      "Přístup k databázi",
	"config.db.driver":               "Typ",
	"config.db.driver.help":          "typ databázového serveru",
	"config.db.server":               "Server",
	"config.db.server.help":          "host (např. localhost nebo 127.0.0.1)",
	"config.db.port":                 "Port",
	"config.db.port.help":            "pokud je potřeba nestandardní port, uveďte jej",
	"config.db.user":                 "Uživatel",
	"config.db.user.help":            "uživatelské jméno",
	"config.db.password":             "Heslo",
	"config.db.password.help":        "heslo (je-li vyžadováno)",
	"config.db.name":                 "Databáze",
	"config.db.name.help":            "název databáze (pokud neexistuje, bude vytvořena)",
	"config.db.prefix":               "Prefix",
	"config.db.prefix.help":          "předpona názvu tabulek",

	"migration.title":                       "Migrace databáze",
	"migration.text":                        "Tento krok provede migraci tabulek v databázi.",
	"migration.error.confirmation.required": "je nezbytné potvrdit zahájení migrace",
	"migration.error.completed":             "Migrace již byla dokončena, tento krok nelze opakovat.",
	"migration.error.policy.denied":         "migraci zamítlo pravidlo: %v",
	"migration.error.failed":                "migrace se nezdařila: %v",
	"migration.confirmation":                "Migrace databáze",
	"migration.confirmation.text":           "Pro případ neúspěchu migrace, je vhodné zazálohovat databázi před samotným spuštěním.",
	"migration.confirmation.allow":          "rozumím, zahájit migraci databáze",
	"migration.warnings":                    "Upozornění",

	"complete.title":                "Hotovo",
	"complete.whats_next":           "Co dál?",
	"complete.success":              "Migrace byla úspěšně dokončena!",
	"complete.migrationdir_warning": "Než budete pokračovat, je potřeba odstranit instalační adresář ze serveru.",
	"complete.goto.web":             "zobrazit stránky",
	"complete.goto.admin":           "přihlásit se do administrace",
}

// labelsNone is used before a language has been chosen.
var labelsNone = map[string]string{
	"step.submit":    "Pokračovat / Continue",
	"step.exception": "Chyba / Error",
	"language.title": "Jazyk / Language",
	"language.text":  "Choose a language / zvolte jazyk:",
}
