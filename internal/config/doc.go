// Package config loads, normalizes, and validates manimgen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as OPENAI_API_KEY and GEMINI_API_KEY. The Config
// value is built once at startup and handed to every component explicitly;
// nothing in the repository reads settings from package-level state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
