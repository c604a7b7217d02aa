// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetWorkspaceID returns the workspace bound by Auth.
func GetWorkspaceID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxWorkspaceID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// MustGetWorkspaceID gets the workspace ID from context or panics
func MustGetWorkspaceID(c *gin.Context) string {
	id, ok := GetWorkspaceID(c)
	if !ok {
		panic("workspace_id not found in context")
	}
	return id
}

// GetRoles gets token roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get(ctxRoles)
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

func HasRole(c *gin.Context, role string) bool {
	for _, r := range GetRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}
