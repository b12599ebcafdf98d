package assist

import (
	"context"
	"fmt"

	"github.com/faceclock/faceclock/internal/database"
)

// BuildPendingItems flattens an organization's pending exceptions into
// digest items, resolving employee names through the directory.
func BuildPendingItems(ctx context.Context, store database.ExceptionStore, directory database.Directory, orgID string) ([]PendingItem, error) {
	pending, err := store.ListPending(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing pending exceptions: %w", err)
	}

	items := make([]PendingItem, 0, len(pending))
	for _, exc := range pending {
		name := exc.EmployeeID
		if emp, err := directory.GetEmployee(ctx, exc.EmployeeID); err == nil && emp != nil {
			name = emp.FullName
		}
		items = append(items, PendingItem{
			EmployeeName:     name,
			Type:             exc.Type,
			Reason:           exc.Reason,
			DeviationMinutes: exc.DeviationMinutes,
			Date:             exc.Date,
			HasDocument:      exc.DocumentRef != "",
		})
	}
	return items, nil
}
