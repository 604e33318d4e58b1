// Package authz decides whether the current identity may navigate to a
// resource.
//
// Every navigable path belongs to a ResourceClass, looked up in a
// RouteTable. Evaluate applies the access rules:
//
//   - without an identity only Public resources are allowed; anything else
//     redirects to the landing page with reason "login-required"
//   - admins may open StudentOnly resources
//   - students are redirected with reason "forbidden" from AdminOnly
//     resources
//   - everything else is allowed
//
// Gate wraps Evaluate and remembers the path a login-required redirect was
// issued for, so the session can resume there after login.
package authz
