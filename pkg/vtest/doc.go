// Package vtest provides testing helpers for view components.
//
// Host stands in for the application shell: dispatched work runs inline,
// one task at a time, and Wait blocks until every tracked background task
// has finished. The event helpers invoke the handlers a rendered tree
// carries, the way the shell does for browser events.
//
// # Quick Start
//
//	func TestLogin(t *testing.T) {
//	    host := vtest.NewHost("/login")
//	    l := NewLogin(host, deps)
//	    vtest.Submit(t, l.Render(), "login-form", map[string]string{
//	        "email":    "alex@example.com",
//	        "password": "secret",
//	    })
//	    host.Wait()
//	    vtest.ExpectNavigated(t, host, "/profile")
//	}
package vtest
