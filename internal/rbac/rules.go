package rbac

// Default policy. Tier limits are enforced separately by the session
// engine; permissions only gate which operations a role may call.
var RolePermissions = map[string][]string{
	"user": {
		"session:create",
		"session:start",
		"session:submit",
		"session:view-own",
		"session:delete-own",
		"question:view",
		"stats:view-own",
	},
	"admin": {
		"*", // everything
	},
}
