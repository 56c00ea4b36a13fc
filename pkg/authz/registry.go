package authz

const (
	RoleTenantAdmin = "tenant-admin"
	RoleEvaluator   = "evaluator"
	RoleAnonymous   = "anonymous"
)

const (
	ActionRead  = "read"
	ActionAdmin = "admin"
)

const (
	ObjectEvaluations  = "nullguard.evaluations"
	ObjectDeclarations = "nullguard.declarations"
)
