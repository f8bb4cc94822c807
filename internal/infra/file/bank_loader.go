// Package file loads the question bank from a JSON document of the form
// [{"category": ..., "questions": [{"question", "options", "correctAnswer"}]}].
package file

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"chwazi-quiz/internal/domain"
)

//go:embed questions.json
var defaultBank []byte

// BankLoader serves categories from a parsed JSON bank.
type BankLoader struct {
	bank domain.Bank
}

// NewDefaultBankLoader uses the bank shipped with the binary.
func NewDefaultBankLoader() (*BankLoader, error) {
	return NewBankLoader(defaultBank)
}

// NewBankLoaderFromPath reads the bank from a file on disk.
func NewBankLoaderFromPath(path string) (*BankLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	return NewBankLoader(data)
}

// NewBankLoaderFromFS reads the bank from name inside fsys.
func NewBankLoaderFromFS(fsys fs.FS, name string) (*BankLoader, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	return NewBankLoader(data)
}

// NewBankLoader parses and validates a JSON bank document.
func NewBankLoader(data []byte) (*BankLoader, error) {
	bank, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &BankLoader{bank: bank}, nil
}

// Parse decodes a JSON bank and rejects questions the game could not serve.
func Parse(data []byte) (domain.Bank, error) {
	var bank domain.Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("%w: decode bank: %v", domain.ErrConfiguration, err)
	}
	seen := make(map[string]struct{}, len(bank))
	for _, c := range bank {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: category without a name", domain.ErrConfiguration)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", domain.ErrConfiguration, c.Name)
		}
		seen[c.Name] = struct{}{}
		for i, q := range c.Questions {
			if err := Validate(q); err != nil {
				return nil, fmt.Errorf("category %q question %d: %w", c.Name, i, err)
			}
		}
	}
	return bank, nil
}

// Validate checks that a question has at least two options and a correct index within them.
func Validate(q domain.Question) error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: needs at least two options", domain.ErrMalformedQuestion)
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("%w: correct answer %d out of range", domain.ErrMalformedQuestion, q.CorrectOption)
	}
	return nil
}

// Bank returns the parsed bank.
func (l *BankLoader) Bank() domain.Bank {
	return l.bank
}

func (l *BankLoader) LoadCategory(_ context.Context, name string) (domain.Category, error) {
	for _, c := range l.bank {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrUnknownCategory
}

func (l *BankLoader) LoadCategoryNames(_ context.Context) ([]string, error) {
	return l.bank.Names(), nil
}
