// Package catalog holds the static onboarding workflow definition and the
// manufacturer normalizer that selects its variant.
package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/me/partnerportal/pkg/model"
)

// Step keys.
const (
	StepGeneral      = "step1"
	StepMicrosoft    = "step2_microsoft"
	StepAWS          = "step2_aws"
	StepGoogle       = "step2_google"
	StepActivation   = "step3"
	stepsPerWorkflow = 3
)

var step1 = model.MainStepDefinition{
	Key:      StepGeneral,
	LabelKey: "step1.title",
	Substeps: []model.SubstepDefinition{
		{
			Key:             "kickoff",
			Type:            model.SubstepBoolean,
			FieldKey:        "Kickoff Call Done",
			LabelKey:        "step1.kickoff.label",
			InstructionsKey: "step1.kickoff.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:  "company_profile",
			Type: model.SubstepGroup,
			Fields: []model.FieldDefinition{
				{FieldKey: "Company Legal Name", Type: model.SubstepText, LabelKey: "field.legal_name"},
				{FieldKey: "VAT ID", Type: model.SubstepText, LabelKey: "field.vat_id"},
				{FieldKey: "Billing Address Confirmed", Type: model.SubstepBoolean, LabelKey: "field.billing_address"},
			},
			LabelKey:        "step1.company_profile.label",
			InstructionsKey: "step1.company_profile.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "reseller_agreement",
			Type:            model.SubstepBoolean,
			FieldKey:        "Reseller Agreement Signed",
			LabelKey:        "step1.reseller_agreement.label",
			InstructionsKey: "step1.reseller_agreement.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
		{
			Key:             "ion_account",
			Type:            model.SubstepText,
			FieldKey:        "ION Customer ID",
			LabelKey:        "step1.ion_account.label",
			InstructionsKey: "step1.ion_account.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
	},
}

var step2Microsoft = model.MainStepDefinition{
	Key:          StepMicrosoft,
	LabelKey:     "step2_microsoft.title",
	Manufacturer: model.ManufacturerMicrosoft,
	Substeps: []model.SubstepDefinition{
		{
			Key:             "mpn_id",
			Type:            model.SubstepText,
			FieldKey:        "MPN ID",
			LabelKey:        "step2_microsoft.mpn_id.label",
			InstructionsKey: "step2_microsoft.mpn_id.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "partner_center",
			Type:            model.SubstepBoolean,
			FieldKey:        "Partner Center Linked",
			LabelKey:        "step2_microsoft.partner_center.label",
			InstructionsKey: "step2_microsoft.partner_center.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "reseller_relationship",
			Type:            model.SubstepBoolean,
			FieldKey:        "Reseller Relationship Accepted",
			LabelKey:        "step2_microsoft.reseller_relationship.label",
			InstructionsKey: "step2_microsoft.reseller_relationship.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:  "gdap",
			Type: model.SubstepGroup,
			Fields: []model.FieldDefinition{
				{FieldKey: "GDAP Request Sent", Type: model.SubstepBoolean, LabelKey: "field.gdap_sent"},
				{FieldKey: "GDAP Approved", Type: model.SubstepBoolean, LabelKey: "field.gdap_approved"},
			},
			LabelKey:        "step2_microsoft.gdap.label",
			InstructionsKey: "step2_microsoft.gdap.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
	},
}

var step2AWS = model.MainStepDefinition{
	Key:          StepAWS,
	LabelKey:     "step2_aws.title",
	Manufacturer: model.ManufacturerAWS,
	Substeps: []model.SubstepDefinition{
		{
			Key:             "aws_account",
			Type:            model.SubstepText,
			FieldKey:        "AWS Account ID",
			LabelKey:        "step2_aws.aws_account.label",
			InstructionsKey: "step2_aws.aws_account.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "apn_registration",
			Type:            model.SubstepBoolean,
			FieldKey:        "APN Registration Complete",
			LabelKey:        "step2_aws.apn_registration.label",
			InstructionsKey: "step2_aws.apn_registration.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "billing_transfer",
			Type:            model.SubstepBoolean,
			FieldKey:        "Billing Transfer & Payer Setup",
			LabelKey:        "step2_aws.billing_transfer.label",
			InstructionsKey: "step2_aws.billing_transfer.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
	},
}

var step2Google = model.MainStepDefinition{
	Key:          StepGoogle,
	LabelKey:     "step2_google.title",
	Manufacturer: model.ManufacturerGoogle,
	Substeps: []model.SubstepDefinition{
		{
			Key:             "billing_account",
			Type:            model.SubstepText,
			FieldKey:        "GCP Billing Account ID",
			LabelKey:        "step2_google.billing_account.label",
			InstructionsKey: "step2_google.billing_account.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "partner_advantage",
			Type:            model.SubstepBoolean,
			FieldKey:        "Partner Advantage Enrollment",
			LabelKey:        "step2_google.partner_advantage.label",
			InstructionsKey: "step2_google.partner_advantage.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:  "reseller_domain",
			Type: model.SubstepGroup,
			Fields: []model.FieldDefinition{
				{FieldKey: "Reseller Domain", Type: model.SubstepText, LabelKey: "field.reseller_domain"},
				{FieldKey: "Domain Verified", Type: model.SubstepBoolean, LabelKey: "field.domain_verified"},
			},
			LabelKey:        "step2_google.reseller_domain.label",
			InstructionsKey: "step2_google.reseller_domain.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
	},
}

var step3 = model.MainStepDefinition{
	Key:             StepActivation,
	LabelKey:        "step3.title",
	GatedByPrevious: true,
	Substeps: []model.SubstepDefinition{
		{
			Key:             "first_order",
			Type:            model.SubstepBoolean,
			FieldKey:        "First Order Placed",
			LabelKey:        "step3.first_order.label",
			InstructionsKey: "step3.first_order.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
		{
			Key:             "training",
			Type:            model.SubstepBoolean,
			FieldKey:        "Sales & Tech Training Done",
			LabelKey:        "step3.training.label",
			InstructionsKey: "step3.training.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "marketplace_listing",
			Type:            model.SubstepText,
			FieldKey:        "Marketplace Listing URL",
			LabelKey:        "step3.marketplace_listing.label",
			InstructionsKey: "step3.marketplace_listing.instructions",
			CompletedBy:     model.CompletedByUser,
		},
		{
			Key:             "go_live",
			Type:            model.SubstepBoolean,
			FieldKey:        "Go-Live Approved",
			LabelKey:        "step3.go_live.label",
			InstructionsKey: "step3.go_live.instructions",
			CompletedBy:     model.CompletedByExternalSystem,
		},
	},
}

// variants selects the manufacturer-specific second step.
var variants = map[model.ManufacturerKey]model.MainStepDefinition{
	model.ManufacturerMicrosoft: step2Microsoft,
	model.ManufacturerAWS:       step2AWS,
	model.ManufacturerGoogle:    step2Google,
}

// All returns a copy of every main step definition in the catalog,
// including all manufacturer variants.
func All() []model.MainStepDefinition {
	return []model.MainStepDefinition{
		cloneStep(step1),
		cloneStep(step2Microsoft),
		cloneStep(step2AWS),
		cloneStep(step2Google),
		cloneStep(step3),
	}
}

// StepsFor returns the three main steps for a canonical manufacturer key:
// step1, the key's step2 variant, step3. Unknown keys use the default variant.
func StepsFor(key model.ManufacturerKey) []model.MainStepDefinition {
	variant, ok := variants[key]
	if !ok {
		variant = variants[model.DefaultManufacturer]
	}
	return []model.MainStepDefinition{cloneStep(step1), cloneStep(variant), cloneStep(step3)}
}

// EffectiveSteps returns the three main steps that apply to a raw manufacturer value.
func EffectiveSteps(raw any) []model.MainStepDefinition {
	return StepsFor(Normalize(raw))
}

// AllSubsteps returns the substeps of EffectiveSteps(raw) in order.
func AllSubsteps(raw any) []model.SubstepDefinition {
	return Flatten(EffectiveSteps(raw))
}

// Flatten concatenates the substeps of steps in order.
func Flatten(steps []model.MainStepDefinition) []model.SubstepDefinition {
	var out []model.SubstepDefinition
	for _, st := range steps {
		out = append(out, st.Substeps...)
	}
	return out
}

// Location identifies where a backend field key lives in a step list.
type Location struct {
	StepIndex    int
	SubstepIndex int
	Field        model.FieldDefinition
}

// Lookup finds the step and substep that own fieldKey.
func Lookup(steps []model.MainStepDefinition, fieldKey string) (Location, bool) {
	for si, st := range steps {
		for ci, sub := range st.Substeps {
			switch sub.Type {
			case model.SubstepGroup:
				for _, f := range sub.Fields {
					if f.FieldKey == fieldKey {
						return Location{StepIndex: si, SubstepIndex: ci, Field: f}, true
					}
				}
			default:
				if sub.FieldKey == fieldKey {
					return Location{
						StepIndex:    si,
						SubstepIndex: ci,
						Field:        model.FieldDefinition{FieldKey: sub.FieldKey, Type: sub.Type, LabelKey: sub.LabelKey},
					}, true
				}
			}
		}
	}
	return Location{}, false
}

// Validate checks the structural invariants of the whole catalog.
func Validate() error {
	var errs []error
	for _, st := range All() {
		if st.Key == "" {
			errs = append(errs, errors.New("main step with empty key"))
		}
		for _, sub := range st.Substeps {
			if err := validateSubstep(sub); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", st.Key, sub.Key, err))
			}
		}
	}
	for _, key := range model.Manufacturers {
		steps := StepsFor(key)
		if len(steps) != stepsPerWorkflow {
			errs = append(errs, fmt.Errorf("%s: %d main steps, want %d", key, len(steps), stepsPerWorkflow))
		}
		seen := make(map[string]bool)
		for _, sub := range Flatten(steps) {
			for _, fk := range sub.FieldKeys() {
				if seen[fk] {
					errs = append(errs, fmt.Errorf("%s: field %q used twice", key, fk))
				}
				seen[fk] = true
			}
		}
	}
	return errors.Join(errs...)
}

func validateSubstep(sub model.SubstepDefinition) error {
	if sub.Key == "" {
		return errors.New("empty substep key")
	}
	switch sub.Type {
	case model.SubstepBoolean, model.SubstepText:
		if sub.FieldKey == "" || len(sub.Fields) > 0 {
			return fmt.Errorf("%s substep needs exactly a field key", sub.Type)
		}
	case model.SubstepGroup:
		if sub.FieldKey != "" || len(sub.Fields) == 0 {
			return errors.New("GROUP substep needs exactly a field list")
		}
		for _, f := range sub.Fields {
			if f.FieldKey == "" {
				return errors.New("GROUP field with empty key")
			}
			if f.Type != model.SubstepBoolean && f.Type != model.SubstepText {
				return fmt.Errorf("GROUP field %q has type %s", f.FieldKey, f.Type)
			}
		}
	default:
		return fmt.Errorf("unknown substep type %q", sub.Type)
	}
	return nil
}

func cloneStep(st model.MainStepDefinition) model.MainStepDefinition {
	st.Substeps = slices.Clone(st.Substeps)
	for i := range st.Substeps {
		st.Substeps[i].Fields = slices.Clone(st.Substeps[i].Fields)
	}
	return st
}
