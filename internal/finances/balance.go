package finances

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction states whose approved amount counts as spent.
var countedTransactionStates = map[string]bool{
	"payed":  true,
	"public": true,
}

var countedExtraStates = map[string]bool{
	ExtraPayed:    true,
	ExtraBorrowed: true,
}

// BuildBalance groups spending per section and transaction type. Types of unconfigured sections are left out.
func BuildBalance(sections Sections, types []TransactionType, approved []ApprovedAmount, extras []ExtraExpense) []SectionBalance {
	actualByType := make(map[string]decimal.Decimal)

	for _, a := range approved {
		if !countedTransactionStates[a.TransactionState] {
			continue
		}
		actualByType[a.TransactionTypeID] = actualByType[a.TransactionTypeID].Add(a.Amount)
	}
	for _, e := range extras {
		if !countedExtraStates[e.State] {
			continue
		}
		actualByType[e.TransactionTypeID] = actualByType[e.TransactionTypeID].Add(e.Amount)
	}

	typesBySection := make(map[string][]TransactionType)
	for _, t := range types {
		typesBySection[t.Section] = append(typesBySection[t.Section], t)
	}

	result := make([]SectionBalance, 0, len(sections))
	for _, section := range sections {
		sectionTypes := typesBySection[section.Code]
		sort.SliceStable(sectionTypes, func(i, j int) bool {
			return strings.ToLower(sectionTypes[i].Name) < strings.ToLower(sectionTypes[j].Name)
		})

		balance := SectionBalance{
			Section: section.Code,
			Label:   section.Label,
			Rows:    make([]BalanceRow, 0, len(sectionTypes)),
		}
		for _, t := range sectionTypes {
			actual := actualByType[t.ID]
			balance.Rows = append(balance.Rows, BalanceRow{
				TransactionTypeID: t.ID,
				Name:              t.Name,
				Actual:            actual,
				Budget:            t.Budget,
			})
			balance.Actual = balance.Actual.Add(actual)
			if t.Budget != nil {
				balance.Budget = balance.Budget.Add(*t.Budget)
			}
		}
		result = append(result, balance)
	}
	return result
}

// Balance recomputes the report from storage on every call.
func (s *Service) Balance(ctx context.Context) ([]SectionBalance, error) {
	types, err := s.storage.ListTransactionTypes(ctx, TypeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction types: %w", err)
	}
	approved, err := s.storage.ListApprovedAmounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved amounts: %w", err)
	}
	extras, err := s.storage.ListExtraExpenses(ctx, ExtraExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get extra expenses: %w", err)
	}
	return BuildBalance(s.sections, types, approved, extras), nil
}
