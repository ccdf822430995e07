package config

import (
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers struct-level rules that span fields.
func RegisterCustomValidators(v *validator.Validate) {
	v.RegisterStructValidation(validateProcessing, ProcessingConfig{})
}

// validateProcessing rejects overlaps that would stop chunk boundaries from advancing.
func validateProcessing(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(ProcessingConfig)
	if !ok {
		return
	}
	if cfg.OverlapSize >= cfg.ChunkSize {
		sl.ReportError(cfg.OverlapSize, "OverlapSize", "overlap_size", "ltfield", "ChunkSize")
	}
}
