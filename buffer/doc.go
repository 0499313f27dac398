// Package buffer implements the spillable buffer: a device-or-host
// memory handle that can be migrated between tiers under a global
// device budget while tracking raw-pointer escapes.
//
// A base buffer owns its allocation and a single mutex; views are
// zero-copy offset/size slices that delegate residency, exposure and
// pin state to their base. A buffer is spillable while it is neither
// permanently exposed nor transiently pinned.
//
// Author: momentics
// License: Apache-2.0
package buffer
