/*
Package mailform renders localized HTML emails from a template and a stack of
JSON documents, and sends them through Microsoft Graph, the Gmail API or SMTP.

A render merges, from lowest to highest precedence:
  - the base data file describing the message
  - the locale header, footer and sender documents (allowlisted fields only)
  - the gender and formality mode documents (all fields)
  - the computed year

# Configuration

Mailform reads a YAML configuration file (.mailform.yaml) that points at the
settings tree, the template, the output directory and the send accounts.
Environment variables are expanded and an optional .env file is loaded first.

# Usage

	mailform render --data data.json --locale de   # Render and save the HTML
	mailform send --data data.json --locale en     # Render, save and send
	mailform vars --data data.json --locale jp     # Print resolved variables
	mailform locales                               # List supported locales
	mailform auth login gmail -a me@gmail.com      # Run the OAuth2 flow
*/
package mailform

// Version is the current version of Mailform
const Version = "1.0.0"

// BuildDate is set at build time
var BuildDate string

// GitCommit is set at build time
var GitCommit string
