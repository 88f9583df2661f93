package gateway

import (
	"fmt"
	"strings"

	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
)

// XFlow names random PIX keys EVP; every other type shares the internal name.
var (
	toXFlowKeyType = map[withdrawal.KeyType]string{
		withdrawal.KeyTypeCPF:    "CPF",
		withdrawal.KeyTypeCNPJ:   "CNPJ",
		withdrawal.KeyTypeEmail:  "EMAIL",
		withdrawal.KeyTypePhone:  "PHONE",
		withdrawal.KeyTypeRandom: "EVP",
	}
	fromXFlowKeyType = invertKeyTypes(toXFlowKeyType)
)

func invertKeyTypes(m map[withdrawal.KeyType]string) map[string]withdrawal.KeyType {
	out := make(map[string]withdrawal.KeyType, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// ToXFlowKeyType maps an internal key type to the XFlow vocabulary.
func ToXFlowKeyType(k withdrawal.KeyType) (string, error) {
	v, ok := toXFlowKeyType[k]
	if !ok {
		return "", fmt.Errorf("unsupported pix key type %q", k)
	}
	return v, nil
}

// FromXFlowKeyType maps an XFlow key type back to the internal vocabulary.
func FromXFlowKeyType(s string) (withdrawal.KeyType, error) {
	k, ok := fromXFlowKeyType[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported xflow key type %q", s)
	}
	return k, nil
}

// ToKeyClubKeyType maps an internal key type to the KeyClub vocabulary, which uses the
// internal names in lower case.
func ToKeyClubKeyType(k withdrawal.KeyType) (string, error) {
	if _, ok := toXFlowKeyType[k]; !ok {
		return "", fmt.Errorf("unsupported pix key type %q", k)
	}
	return strings.ToLower(string(k)), nil
}
