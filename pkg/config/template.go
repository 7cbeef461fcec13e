// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package config

// DefaultTOML is the starter configuration written by `upkeep init`.
const DefaultTOML = `# upkeep configuration
#
# Groups run in declared order. Tasks in a group run sequentially unless
# the group sets parallel = true; parallel tasks share the global
# parallel_limit across the whole run.

[settings]
parallel_execution = false
parallel_limit = 4
skip_optional_on_error = false
keychain_label = "upkeep-sudo"
desktop_notifications = true
show_summary = true
# log_file = "~/.local/state/upkeep/run.log"

[[groups]]
name = "System Updates"
description = "Operating system updates"
parallel = false

  [[groups.tasks]]
  name = "macOS Updates"
  command = ["softwareupdate", "--install", "--all"]
  sudo = true
  required = true
  timeout = 3600
  check_command = "softwareupdate"

[[groups]]
name = "Homebrew"
description = "Homebrew package manager"
parallel = false

  [[groups.tasks]]
  name = "Update Formulae"
  command = ["brew", "update"]
  required = true
  timeout = 300
  check_command = "brew"

  [[groups.tasks]]
  name = "Upgrade Packages"
  command = ["brew", "upgrade"]
  required = true
  timeout = 1200
  check_command = "brew"

  [[groups.tasks]]
  name = "Cleanup"
  command = ["brew", "cleanup", "--prune=7"]
  required = false
  check_command = "brew"

[[groups]]
name = "Developer Caches"
description = "Refresh per-tool caches"
parallel = true

  [[groups.tasks]]
  name = "Rust Toolchain"
  command = ["rustup", "update"]
  required = false
  check_command = "rustup"

  [[groups.tasks]]
  name = "npm Packages"
  command = ["npm", "update", "-g"]
  required = false
  check_command = "npm"

  [[groups.tasks]]
  name = "Go Module Cache"
  command = ["go", "clean", "-modcache"]
  required = false
  enabled = false
  check_command = "go"
`
