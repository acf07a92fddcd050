package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           gridd API
// @version         1.0
// @description     HTTP API for browser session distribution across grid nodes.
//
// @contact.name   gridd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
