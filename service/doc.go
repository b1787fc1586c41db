// Package service provides a generic data access service that puts a
// read-through cache in front of an authoritative store.
//
// Lookups by identity are cached as encoded records under a key built from
// the condition:
//
//	App|user|id_u1 -> {"id":"u1","email":"a@x.com",...}
//
// Lookups by any other condition are cached as a reference to that identity:
//
//	App|user|email_a@x.com -> #refId_u1
//
// Updating or deleting by identity drops only the identity keyed entry.
// References pointing at it are resolved through the store on their next
// use, which also rewrites the entry.
//
// Cache writes and deletes run detached from the caller and never fail an
// operation. Failures are logged at warn level and passed to cache.Hooks.
// Use Wait to drain them on shutdown.
//
//	svc, err := service.New[User](memstore.New[User](), backend, cache.Config{
//		AppName: "App",
//		TTL:     time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//	defer svc.Wait()
//
//	u, err := svc.FindOne(ctx, entity.Where("email", "a@x.com"))
package service
