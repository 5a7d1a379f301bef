// Package wwsvc is a client for SoftENGINE's WEBSERVICES, the JSON API of
// the WEBWARE ERP server.
//
// A Client starts unregistered. Register obtains a service pass (or adopts one
// supplied in Options), after which every request is signed with an
// incrementing request id and a hash over the session's app id and the
// request timestamp. Deregister invalidates the pass.
//
// Large result sets are paged through a server-side cursor. A Paginator drives
// the cursor until the server reports it closed:
//
//	c, err := wwsvc.New(wwsvc.Options{
//		BaseURL:    "https://webware.example.com",
//		VendorHash: "vendor",
//		AppHash:    "app",
//		Secret:     "1",
//		Revision:   1,
//	})
//	if err != nil {
//		return err
//	}
//	if err := c.Register(ctx); err != nil {
//		return err
//	}
//	defer c.Deregister(context.WithoutCancel(ctx))
//
//	p := wwsvc.NewPaginator[Article](c, http.MethodPut, "ARTIKEL.GET", 1,
//		wwsvc.Parameters{"FELDER": "ART_1_25"}, 100)
//	articles, err := p.CollectAll(ctx)
package wwsvc
