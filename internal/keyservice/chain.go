package keyservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Chain tries several key vaults in order. A request goes to the next vault
// when the previous one fails, so local keys can short-circuit a network
// round trip and Azure still serves entries no local key covers.
type Chain struct {
	vaults []KeyVault
}

// Decrypt returns the first successful unwrap, or every vault's error joined.
func (c *Chain) Decrypt(ctx context.Context, req DecryptRequest) ([]byte, error) {
	var errs []error
	for _, vault := range c.vaults {
		plaintext, err := vault.Decrypt(ctx, req)
		if err == nil {
			return plaintext, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// ConnectChain connects every non-nil ConnectFunc and chains the vaults that
// connected. It fails only when none of them did.
func ConnectChain(connects ...ConnectFunc) ConnectFunc {
	return func(ctx context.Context) (KeyVault, error) {
		chain := &Chain{}
		var errs []error
		for _, connect := range connects {
			if connect == nil {
				continue
			}
			vault, err := connect(ctx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			chain.vaults = append(chain.vaults, vault)
		}
		if len(chain.vaults) == 0 {
			if len(errs) == 0 {
				return nil, fmt.Errorf("no key vault available")
			}
			return nil, errors.Join(errs...)
		}
		return chain, nil
	}
}

// ConnectOnce caches the first vault connect returns so that several
// resolutions share credentials and HTTP clients. Failed connects are not
// cached.
func ConnectOnce(connect ConnectFunc) ConnectFunc {
	var (
		mu    sync.Mutex
		vault KeyVault
	)
	return func(ctx context.Context) (KeyVault, error) {
		mu.Lock()
		defer mu.Unlock()
		if vault != nil {
			return vault, nil
		}
		v, err := connect(ctx)
		if err != nil {
			return nil, err
		}
		vault = v
		return vault, nil
	}
}
