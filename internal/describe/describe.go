// Package describe renders the management label, quote text and e-commerce
// text for an enriched product.
package describe

import (
	"fmt"
	"strings"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// UsageScenarios are the fixed bullet sentences appended to every
// e-commerce description.
var UsageScenarios = []string{
	"Surveillance résidentielle - Protection de votre domicile 24h/24 avec détection intelligente",
	"Sécurité commerciale - Surveillance de locaux professionnels, entrepôts et zones sensibles",
	"Monitoring industriel - Contrôle de sites de production, chaînes logistiques et équipements",
	"Surveillance périmétrique - Protection d'espaces extérieurs, parkings et accès sécurisés",
	"Contrôle d'accès - Gestion des entrées et sorties avec reconnaissance faciale avancée",
	"Télésurveillance - Monitoring à distance avec alertes temps réel et enregistrement cloud",
}

const supportBoilerplate = `Compatible avec les systèmes HIKVISION et solutions de sécurité tierces.
Installation et configuration par nos techniciens certifiés HIKVISION.
Support technique 24/7 et garantie constructeur inclus.
Formation utilisateur et maintenance préventive disponibles.`

// ListSeparator joins accessories and filters in every generated text.
const ListSeparator = ", "

// Synthesize builds the DescriptionSet for sku. Output depends only on its
// inputs.
func Synthesize(sku string, rec model.ProductRecord, prices model.PriceSet) model.DescriptionSet {
	return model.DescriptionSet{
		ManagementLabel:      ManagementLabel(sku, rec),
		QuoteDescription:     QuoteDescription(sku, rec, prices),
		EcommerceDescription: EcommerceDescription(rec),
	}
}

// ManagementLabel is the ERP label; it always starts with the SKU.
func ManagementLabel(sku string, rec model.ProductRecord) string {
	return sku + " - " + rec.Name
}

// QuoteDescription is the multi-line text pasted into customer quotes.
func QuoteDescription(sku string, rec model.ProductRecord, prices model.PriceSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", rec.Name)
	fmt.Fprintf(&b, "Référence: %s\n", sku)
	fmt.Fprintf(&b, "Catégorie: %s\n\n", rec.Category)
	fmt.Fprintf(&b, "Caractéristiques techniques:\n%s\n\n", rec.Specifications)
	fmt.Fprintf(&b, "Description:\n%s\n\n", rec.Description)
	fmt.Fprintf(&b, "Accessoires inclus: %s\n\n", strings.Join(rec.Accessories, ListSeparator))
	fmt.Fprintf(&b, "Prix de vente: %s€ HT", prices.SellingPrice.StringFixed(2))
	return strings.TrimSpace(b.String())
}

// EcommerceDescription is the long-form web shop text.
func EcommerceDescription(rec model.ProductRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", rec.Description)
	fmt.Fprintf(&b, "Spécifications techniques:\n%s\n\n", rec.Specifications)
	fmt.Fprintf(&b, "Accessoires inclus:\n%s\n\n", strings.Join(rec.Accessories, ListSeparator))
	b.WriteString("Scénarios d'utilisation:\n")
	for _, s := range UsageScenarios {
		b.WriteString("• ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(supportBoilerplate)
	return strings.TrimSpace(b.String())
}
