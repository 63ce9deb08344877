package hpc

import (
	"context"
	"fmt"
	"strings"
)

// StoragePageSize is how many storages are requested per page.
const StoragePageSize = 10

// FindHomeStorage pages through the client's storages until one whose
// resource URL ends with name is found.
func FindHomeStorage(ctx context.Context, client Client, name string) (Storage, error) {
	for offset := 0; ; offset += StoragePageSize {
		page, err := client.Storages(ctx, StoragePageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("listing storages: %w", err)
		}
		if len(page) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrHomeStorageNotFound, name)
		}
		for _, s := range page {
			if strings.HasSuffix(s.ResourceURL(), name) {
				return s, nil
			}
		}
	}
}
