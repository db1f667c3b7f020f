// internal/notify/templates.go
package notify

import (
	"fmt"
	"strings"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/models"
)

// Template is the renderable document definition for one notification kind.
// Schema is a JSON-schema fragment the data payload must satisfy before
// rendering.
type Template struct {
	Subject string
	Body    string
	Schema  map[string]interface{}
}

// expirationSchema covers the shared payload of every threshold-crossing
// kind.
var expirationSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"assetName", "expirationDateFormatted", "daysLeft", "assetId", "appUrl"},
	"properties": map[string]interface{}{
		"assetName":               map[string]interface{}{"type": "string"},
		"vendorOrBrand":           map[string]interface{}{"type": "string"},
		"expirationDateFormatted": map[string]interface{}{"type": "string"},
		"daysLeft":                map[string]interface{}{"type": "integer"},
		"assetId":                 map[string]interface{}{"type": "string"},
		"appUrl":                  map[string]interface{}{"type": "string"},
	},
}

var summarySchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"organizationName", "totalAssets", "expiringSoon", "expired", "newThisWeek"},
	"properties": map[string]interface{}{
		"organizationName": map[string]interface{}{"type": "string"},
		"totalAssets":      map[string]interface{}{"type": "integer"},
		"expiringSoon":     map[string]interface{}{"type": "integer"},
		"expired":          map[string]interface{}{"type": "integer"},
		"newThisWeek":      map[string]interface{}{"type": "integer"},
		"expiringItems":    map[string]interface{}{"type": "array"},
		"appUrl":           map[string]interface{}{"type": "string"},
	},
}

// TemplateFor returns the template for a kind. The match is exhaustive over
// the closed kind set; there is no fallback template, an unknown kind is an
// error at the dispatch boundary.
func TemplateFor(kind models.NotificationKind) (*Template, error) {
	switch kind {
	case models.KindLicenseExpiring30:
		return &Template{
			Subject: "License {{assetName}} expires in {{daysLeft}} days",
			Body: "<p>The license <strong>{{assetName}}</strong> ({{vendorOrBrand}}) expires on {{expirationDateFormatted}}.</p>" +
				"<p><a href=\"{{appUrl}}/licenses/{{assetId}}\">Review license</a></p>",
			Schema: expirationSchema,
		}, nil
	case models.KindLicenseExpiring7:
		return &Template{
			Subject: "License {{assetName}} expires in {{daysLeft}} days - action needed",
			Body: "<p>The license <strong>{{assetName}}</strong> ({{vendorOrBrand}}) expires on {{expirationDateFormatted}}. Renew it before it lapses.</p>" +
				"<p><a href=\"{{appUrl}}/licenses/{{assetId}}\">Renew license</a></p>",
			Schema: expirationSchema,
		}, nil
	case models.KindLicenseExpired:
		return &Template{
			Subject: "License {{assetName}} has expired",
			Body: "<p>The license <strong>{{assetName}}</strong> ({{vendorOrBrand}}) expired on {{expirationDateFormatted}}.</p>" +
				"<p><a href=\"{{appUrl}}/licenses/{{assetId}}\">View license</a></p>",
			Schema: expirationSchema,
		}, nil
	case models.KindHardwareWarrantyExpiring:
		return &Template{
			Subject: "Warranty for {{assetName}} expires in {{daysLeft}} days",
			Body: "<p>The warranty for <strong>{{assetName}}</strong> ({{vendorOrBrand}}) ends on {{expirationDateFormatted}}.</p>" +
				"<p><a href=\"{{appUrl}}/hardware/{{assetId}}\">View hardware</a></p>",
			Schema: expirationSchema,
		}, nil
	case models.KindContractExpiring:
		return &Template{
			Subject: "Support contract {{assetName}} expires in {{daysLeft}} days",
			Body: "<p>The support contract <strong>{{assetName}}</strong> ({{vendorOrBrand}}) ends on {{expirationDateFormatted}}.</p>" +
				"<p><a href=\"{{appUrl}}/contracts/{{assetId}}\">View contract</a></p>",
			Schema: expirationSchema,
		}, nil
	case models.KindWeeklySummary:
		return &Template{
			Subject: "Weekly asset summary for {{organizationName}}",
			Body: "<p>{{organizationName}}: {{totalAssets}} assets tracked, {{expiringSoon}} expiring within 30 days, " +
				"{{expired}} expired, {{newThisWeek}} added this week.</p>" +
				"{{expiringItemsHtml}}" +
				"<p><a href=\"{{appUrl}}/dashboard\">Open dashboard</a></p>",
			Schema: summarySchema,
		}, nil
	case models.KindMonthlyReport:
		return &Template{
			Subject: "Monthly asset report for {{organizationName}}",
			Body:    "<p>Your monthly report for {{organizationName}} is ready.</p><p><a href=\"{{appUrl}}/reports\">Open reports</a></p>",
			Schema:  summarySchema,
		}, nil
	case models.KindPaymentFailed:
		return &Template{
			Subject: "Payment failed for {{organizationName}}",
			Body:    "<p>The latest subscription payment for {{organizationName}} failed. Update the payment method to keep tracking active.</p>",
			Schema: map[string]interface{}{
				"type":     "object",
				"required": []string{"organizationName"},
			},
		}, nil
	case models.KindPlanLimitWarning:
		return &Template{
			Subject: "{{organizationName}} is close to its plan limit",
			Body:    "<p>{{organizationName}} has used {{usedAssets}} of {{planLimit}} tracked assets.</p>",
			Schema: map[string]interface{}{
				"type":     "object",
				"required": []string{"organizationName"},
			},
		}, nil
	case models.KindTeamInvite:
		return &Template{
			Subject: "You have been invited to {{organizationName}}",
			Body:    "<p>{{inviterName}} invited you to join {{organizationName}}.</p><p><a href=\"{{inviteUrl}}\">Accept invite</a></p>",
			Schema: map[string]interface{}{
				"type":     "object",
				"required": []string{"organizationName", "inviteUrl"},
			},
		}, nil
	case models.KindTeamMemberJoined:
		return &Template{
			Subject: "{{memberName}} joined {{organizationName}}",
			Body:    "<p>{{memberName}} accepted their invite to {{organizationName}}.</p>",
			Schema: map[string]interface{}{
				"type":     "object",
				"required": []string{"organizationName", "memberName"},
			},
		}, nil
	default:
		return nil, errors.NewTemplateNotFoundError(string(kind))
	}
}

// render substitutes {{key}} placeholders from the data map and strips any
// placeholder left without a value.
func render(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		switch t := v.(type) {
		case string:
			value = t
		case int:
			value = fmt.Sprintf("%d", t)
		default:
			if v != nil {
				value = fmt.Sprintf("%v", v)
			}
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
