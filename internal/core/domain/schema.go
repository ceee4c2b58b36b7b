package domain

// FieldSpec describes one collectable field: its question text and the
// identifier of the validation rule applied to answers.
type FieldSpec struct {
	Name     string `json:"name" yaml:"name"`
	Question string `json:"question" yaml:"question"`
	Rule     string `json:"rule" yaml:"rule"`
}

// FieldSchema is the static, process-wide intake configuration. It is supplied
// at session-init time and never mutated by the machine.
type FieldSchema struct {
	Required    []FieldSpec `json:"required" yaml:"required"`
	Optional    []FieldSpec `json:"optional" yaml:"optional"`
	MaxAttempts int         `json:"max_attempts" yaml:"max_attempts"`
}

func (s FieldSchema) IsRequired(field string) bool {
	for _, f := range s.Required {
		if f.Name == field {
			return true
		}
	}
	return false
}

func (s FieldSchema) IsOptional(field string) bool {
	for _, f := range s.Optional {
		if f.Name == field {
			return true
		}
	}
	return false
}

func (s FieldSchema) IsKnown(field string) bool {
	return s.IsRequired(field) || s.IsOptional(field)
}

// Spec returns the field's declaration, required fields first.
func (s FieldSchema) Spec(field string) (FieldSpec, bool) {
	for _, f := range s.Required {
		if f.Name == field {
			return f, true
		}
	}
	for _, f := range s.Optional {
		if f.Name == field {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns every declared field name, required first, in declared order.
func (s FieldSchema) FieldNames() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	for _, f := range s.Required {
		out = append(out, f.Name)
	}
	for _, f := range s.Optional {
		out = append(out, f.Name)
	}
	return out
}

// Missing returns the declared-order list of fields absent or empty in the
// profile, required fields first. Insertion order into the profile is irrelevant.
func (s FieldSchema) Missing(p Profile) []string {
	missing := make([]string, 0)
	for _, f := range s.Required {
		if !p.Filled(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	for _, f := range s.Optional {
		if !p.Filled(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
