// Package overlay turns detections and a live pointer into display-ready
// geometry for the viewport.
//
// Project is a pure function: it keeps no state between calls and never
// fails. Detection boxes stay in percent-of-image units, so they are
// independent of zoom and pan; the renderer scales them onto whatever it
// draws. The pointer is run through the viewport mapper to produce the info
// panel payload (native pixel, zoom, effective scale, visible extent and the
// approximate celestial position).
package overlay
