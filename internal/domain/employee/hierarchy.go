package employee

import "context"

// ManagerLookup resolves an employee id to its manager id ("" for none).
type ManagerLookup interface {
	ManagerIDOf(ctx context.Context, employeeID string) (string, error)
}

// ValidateManagerChain checks that assigning managerID as the manager of
// employeeID keeps the reporting structure a tree. It walks up from the
// candidate manager and fails if the walk reaches employeeID or revisits a
// node (a pre-existing cycle in the stored data).
func ValidateManagerChain(ctx context.Context, lookup ManagerLookup, employeeID, managerID string) error {
	if managerID == "" {
		return nil
	}
	visited := map[string]bool{}
	current := managerID
	for current != "" {
		if current == employeeID {
			return ErrManagerCycle
		}
		if visited[current] {
			return ErrManagerCycle
		}
		visited[current] = true
		next, err := lookup.ManagerIDOf(ctx, current)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}
