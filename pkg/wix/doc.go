/*
Package wix is a lightweight wrapper around the wix toolset.

wix's toolchain is based around compiling xml files into
installers. Wix provides a variety of tools that can help simplify
this. This package leverages them.

The basic steps of making a package:
 1. Render the Installer.wxs manifest from a template
 2. Create a packageRoot directory structure
 3. Use `heat` to harvest the file list from the packageRoot
 4. Use `candle` to compile the wxs files into wixobj files
 5. Use `light` to link the wixobj files into an msi

Each tool is run as a subprocess with its stdout streamed line by
line to the logger carried in the context. Exit status is the sole
success contract: a stage either exits 0 or the build aborts. There
are no retries and no timeouts; a hung tool hangs the build.

While this is a somewhat agnostic wrapper, it does make several
assumptions about the underlying process. It is not meant as a
complete wix wrapper.

References

 1. http://wixtoolset.org/
*/
package wix
