package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/bankportal/onboarding/internal/account"
)

// Place is printed next to the signature date.
const Place = "Tunis, Tunisie"

// SummaryFilename is the download name of the account summary.
const SummaryFilename = "recapitulatif-compte-bancaire.txt"

// Holder is the identity printed on the artifacts.
type Holder struct {
	FirstName    string
	LastName     string
	DateOfBirth  string
	PlaceOfBirth string
	Nationality  string
	CIN          string
	AccountType  string
	Email        string
	PhoneNumber  string
}

// FullName joins first and last name.
func (h Holder) FullName() string {
	return strings.TrimSpace(h.FirstName + " " + h.LastName)
}

// FormatDate renders a date the fr-FR way.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// Filename returns contrat-compte-bancaire-<first>-<last>.<ext>.
func Filename(h Holder, ext string) string {
	clean := func(s string) string {
		s = strings.Join(strings.Fields(s), "-")
		return strings.Map(func(r rune) rune {
			switch r {
			case '"', '\\', '/', ';':
				return -1
			}
			return r
		}, s)
	}
	return fmt.Sprintf("contrat-compte-bancaire-%s-%s.%s", clean(h.FirstName), clean(h.LastName), ext)
}

// Terms returns the contract articles for the holder.
func Terms(h Holder) string {
	return `CONTRAT D'OUVERTURE DE COMPTE BANCAIRE

Article 1 - Objet du contrat
Le présent contrat a pour objet l'ouverture et la gestion d'un compte bancaire au nom de ` + h.FullName() + ` auprès de notre établissement bancaire.

Article 2 - Conditions d'ouverture
Le compte est ouvert sous réserve de la vérification des pièces justificatives fournies et de l'acceptation du dossier par la banque.

Article 3 - Fonctionnement du compte
Le titulaire du compte s'engage à :
- Alimenter régulièrement son compte
- Respecter les conditions tarifaires en vigueur
- Signaler tout changement de situation
- Utiliser les services bancaires de manière responsable

Article 4 - Services inclus
Le compte comprend :
- Une carte bancaire
- L'accès aux services en ligne
- Les virements et prélèvements
- Un découvert autorisé selon conditions

Article 5 - Tarification
Les tarifs applicables sont ceux en vigueur au moment de l'ouverture du compte, consultables en agence et sur notre site internet.

Article 6 - Protection des données
Vos données personnelles sont traitées conformément au RGPD et à notre politique de confidentialité.

Article 7 - Résiliation
Le compte peut être fermé à tout moment par le titulaire ou par la banque selon les conditions légales.

Article 8 - Droit applicable
Le présent contrat est soumis au droit tunisien. Tout litige sera soumis aux tribunaux compétents.

En signant ce contrat, vous acceptez l'ensemble des conditions générales de vente et d'utilisation de nos services bancaires.`
}

func holderLines(h Holder) []string {
	return []string{
		"Nom: " + h.FullName(),
		"Date de naissance: " + h.DateOfBirth,
		"Lieu de naissance: " + h.PlaceOfBirth,
		"Nationalité: " + h.Nationality,
		"CIN: " + h.CIN,
		"Type de compte: " + h.AccountType,
		"Email: " + h.Email,
		"Téléphone: " + h.PhoneNumber,
	}
}

// Text renders the plain-text contract.
func Text(h Holder, date time.Time) string {
	var b strings.Builder
	b.WriteString("CONTRAT D'OUVERTURE DE COMPTE BANCAIRE\n\n")
	b.WriteString("INFORMATIONS DU TITULAIRE:\n")
	for _, line := range holderLines(h) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(Terms(h))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Date: %s\n", FormatDate(date))
	fmt.Fprintf(&b, "Lieu: %s\n\n", Place)
	b.WriteString("Photo et signature électronique incluses dans le dossier numérique.\n")
	return b.String()
}

// Summary renders the account creation summary.
func Summary(h Holder, info account.AccountInfo, date time.Time) string {
	var b strings.Builder
	b.WriteString("RÉCAPITULATIF DE CRÉATION DE COMPTE BANCAIRE\n\n")
	b.WriteString("Informations personnelles:\n")
	fmt.Fprintf(&b, "- Nom: %s\n", h.FullName())
	fmt.Fprintf(&b, "- Date de naissance: %s\n", h.DateOfBirth)
	fmt.Fprintf(&b, "- Lieu de naissance: %s\n", h.PlaceOfBirth)
	fmt.Fprintf(&b, "- Nationalité: %s\n", h.Nationality)
	fmt.Fprintf(&b, "- CIN: %s\n\n", h.CIN)

	b.WriteString("Informations du compte:\n")
	fmt.Fprintf(&b, "- Type de compte: %s\n", h.AccountType)
	fmt.Fprintf(&b, "- Numéro de compte: %s\n", info.AccountNumber)
	fmt.Fprintf(&b, "- IBAN: %s\n", info.IBAN)
	fmt.Fprintf(&b, "- Code d'accès: %s\n", info.AccessCode)
	fmt.Fprintf(&b, "- Mot de passe temporaire: %s\n", info.TemporaryPassword)
	fmt.Fprintf(&b, "- Code d'activation: %s\n\n", info.ActivationCode)

	b.WriteString("Contact:\n")
	fmt.Fprintf(&b, "- Email: %s\n", h.Email)
	fmt.Fprintf(&b, "- Téléphone: %s\n\n", h.PhoneNumber)

	fmt.Fprintf(&b, "Date de création: %s\n", FormatDate(date))
	b.WriteString("Statut: Compte créé - En attente d'activation\n\n")

	b.WriteString(`IMPORTANT:
- Votre compte est créé mais pas encore activé
- Utilisez vos identifiants pour accéder à l'espace client
- Activez votre compte avec le code d'activation
- Changez votre mot de passe lors de la première connexion

Prochaines étapes:
1. Accédez à votre espace client avec vos identifiants
2. Activez votre compte avec le code d'activation
3. Personnalisez vos paramètres de sécurité
4. Votre carte bancaire sera expédiée sous 5-7 jours

Merci de votre confiance !
`)
	return b.String()
}
