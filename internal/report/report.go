package report

import (
	"encoding/json"
	"os"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/rules"
)

func SaveAnalysisJSON(a *hdmi.Analysis, out string) error {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadAnalysisJSON(path string) (*hdmi.Analysis, error) {
	var a hdmi.Analysis
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func SaveAcceptanceJSON(rep rules.AcceptanceReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadAcceptanceJSON(path string) (rules.AcceptanceReport, error) {
	var rep rules.AcceptanceReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}
