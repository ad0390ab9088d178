// Package icons resolves application icons from XDG icon themes.
//
// Each data directory is searched as <dir>/icons/<theme>/<size>/..., with
// sizes tried from scalable down to symbolic. A candidate's file name must
// start with the application id and its content must sniff as an image.
package icons
