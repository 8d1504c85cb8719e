package main

// General API documentation for swaggo. The generated description lives in
// the docs package and is served when built with -tags=swagger.
//
// @title           tjbridge API
// @version         1.0
// @description     HTTP API over the Tapjoy offerwall SDK bridge.
//
// @contact.name   tjbridge maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
