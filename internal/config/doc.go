// Package config loads the settings of the siteconfig tool itself (which
// layer files to read, where to publish the result, HTTP and logging
// options) from multiple sources with precedence: CLI flags > environment
// variables > YAML settings file > defaults. It is unrelated to the site
// configuration the tool resolves; see package resolver for that.
package config
