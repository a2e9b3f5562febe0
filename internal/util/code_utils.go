package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	codeAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	trialCodePrefix = "TRIAL-"
	trialCodeLength = 8

	manualCodeGroups    = 3
	manualCodeGroupSize = 4
)

func randomCode(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}

	return sb.String(), nil
}

// GenerateTrialCode returns a fresh trial activation code such as
// TRIAL-7K2M9QXZ. Eight symbols from a 36-symbol alphabet keep the
// collision probability negligible; uniqueness is still enforced by the
// store constraint.
func GenerateTrialCode() (string, error) {
	code, err := randomCode(trialCodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate trial code: %w", err)
	}
	return trialCodePrefix + code, nil
}

// GenerateLicenseCode returns a grouped code such as 7K2M-9QXZ-B4PD, used
// when issuing full or dev codes manually.
func GenerateLicenseCode() (string, error) {
	groups := make([]string, manualCodeGroups)
	for i := range groups {
		g, err := randomCode(manualCodeGroupSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate license code: %w", err)
		}
		groups[i] = g
	}
	return strings.Join(groups, "-"), nil
}
