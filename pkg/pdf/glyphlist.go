package pdf

// standardEncoding is the Adobe standard encoding of Latin Type 1 fonts.
var standardEncoding = encodingFromMap(map[int]string{
	32: "space", 33: "exclam", 34: "quotedbl", 35: "numbersign", 36: "dollar",
	37: "percent", 38: "ampersand", 39: "quoteright", 40: "parenleft",
	41: "parenright", 42: "asterisk", 43: "plus", 44: "comma", 45: "hyphen",
	46: "period", 47: "slash", 48: "zero", 49: "one", 50: "two", 51: "three",
	52: "four", 53: "five", 54: "six", 55: "seven", 56: "eight", 57: "nine",
	58: "colon", 59: "semicolon", 60: "less", 61: "equal", 62: "greater",
	63: "question", 64: "at", 65: "A", 66: "B", 67: "C", 68: "D", 69: "E",
	70: "F", 71: "G", 72: "H", 73: "I", 74: "J", 75: "K", 76: "L", 77: "M",
	78: "N", 79: "O", 80: "P", 81: "Q", 82: "R", 83: "S", 84: "T", 85: "U",
	86: "V", 87: "W", 88: "X", 89: "Y", 90: "Z", 91: "bracketleft",
	92: "backslash", 93: "bracketright", 94: "asciicircum", 95: "underscore",
	96: "quoteleft", 97: "a", 98: "b", 99: "c", 100: "d", 101: "e", 102: "f",
	103: "g", 104: "h", 105: "i", 106: "j", 107: "k", 108: "l", 109: "m",
	110: "n", 111: "o", 112: "p", 113: "q", 114: "r", 115: "s", 116: "t",
	117: "u", 118: "v", 119: "w", 120: "x", 121: "y", 122: "z",
	123: "braceleft", 124: "bar", 125: "braceright", 126: "asciitilde",
	161: "exclamdown", 162: "cent", 163: "sterling", 164: "fraction",
	165: "yen", 166: "florin", 167: "section", 168: "currency",
	169: "quotesingle", 170: "quotedblleft", 171: "guillemotleft",
	172: "guilsinglleft", 173: "guilsinglright", 174: "fi", 175: "fl",
	177: "endash", 178: "dagger", 179: "daggerdbl", 180: "periodcentered",
	182: "paragraph", 183: "bullet", 184: "quotesinglbase", 185: "quotedblbase",
	186: "quotedblright", 187: "guillemotright", 188: "ellipsis",
	189: "perthousand", 191: "questiondown", 193: "grave", 194: "acute",
	195: "circumflex", 196: "tilde", 197: "macron", 198: "breve",
	199: "dotaccent", 200: "dieresis", 202: "ring", 203: "cedilla",
	205: "hungarumlaut", 206: "ogonek", 207: "caron", 208: "emdash", 225: "AE",
	227: "ordfeminine", 232: "Lslash", 233: "Oslash", 234: "OE",
	235: "ordmasculine", 241: "ae", 245: "dotlessi", 248: "lslash",
	249: "oslash", 250: "oe", 251: "germandbls",
})

// symbolEncoding is the built-in encoding of the Symbol font.
var symbolEncoding = encodingFromMap(map[int]string{
	32: "space", 33: "exclam", 34: "universal", 35: "numbersign",
	36: "existential", 37: "percent", 38: "ampersand", 39: "suchthat",
	40: "parenleft", 41: "parenright", 42: "asteriskmath", 43: "plus",
	44: "comma", 45: "minus", 46: "period", 47: "slash", 48: "zero", 49: "one",
	50: "two", 51: "three", 52: "four", 53: "five", 54: "six", 55: "seven",
	56: "eight", 57: "nine", 58: "colon", 59: "semicolon", 60: "less",
	61: "equal", 62: "greater", 63: "question", 64: "congruent", 65: "Alpha",
	66: "Beta", 67: "Chi", 68: "Delta", 69: "Epsilon", 70: "Phi", 71: "Gamma",
	72: "Eta", 73: "Iota", 74: "theta1", 75: "Kappa", 76: "Lambda", 77: "Mu",
	78: "Nu", 79: "Omicron", 80: "Pi", 81: "Theta", 82: "Rho", 83: "Sigma",
	84: "Tau", 85: "Upsilon", 86: "sigma1", 87: "Omega", 88: "Xi", 89: "Psi",
	90: "Zeta", 91: "bracketleft", 92: "therefore", 93: "bracketright",
	94: "perpendicular", 95: "underscore", 96: "radicalex", 97: "alpha",
	98: "beta", 99: "chi", 100: "delta", 101: "epsilon", 102: "phi",
	103: "gamma", 104: "eta", 105: "iota", 106: "phi1", 107: "kappa",
	108: "lambda", 109: "mu", 110: "nu", 111: "omicron", 112: "pi",
	113: "theta", 114: "rho", 115: "sigma", 116: "tau", 117: "upsilon",
	118: "omega1", 119: "omega", 120: "xi", 121: "psi", 122: "zeta",
	123: "braceleft", 124: "bar", 125: "braceright", 126: "similar",
	160: "Euro", 161: "Upsilon1", 162: "minute", 163: "lessequal",
	164: "fraction", 165: "infinity", 166: "florin", 167: "club",
	168: "diamond", 169: "heart", 170: "spade", 171: "arrowboth",
	172: "arrowleft", 173: "arrowup", 174: "arrowright", 175: "arrowdown",
	176: "degree", 177: "plusminus", 178: "second", 179: "greaterequal",
	180: "multiply", 181: "proportional", 182: "partialdiff", 183: "bullet",
	184: "divide", 185: "notequal", 186: "equivalence", 187: "approxequal",
	188: "ellipsis", 189: "arrowvertex", 190: "arrowhorizex",
	191: "carriagereturn", 192: "aleph", 193: "Ifraktur", 194: "Rfraktur",
	195: "weierstrass", 196: "circlemultiply", 197: "circleplus",
	198: "emptyset", 199: "intersection", 200: "union", 201: "propersuperset",
	202: "reflexsuperset", 203: "notsubset", 204: "propersubset",
	205: "reflexsubset", 206: "element", 207: "notelement", 208: "angle",
	209: "gradient", 210: "registerserif", 211: "copyrightserif",
	212: "trademarkserif", 213: "product", 214: "radical", 215: "dotmath",
	216: "logicalnot", 217: "logicaland", 218: "logicalor", 219: "arrowdblboth",
	220: "arrowdblleft", 221: "arrowdblup", 222: "arrowdblright",
	223: "arrowdbldown", 224: "lozenge", 225: "angleleft", 226: "registersans",
	227: "copyrightsans", 228: "trademarksans", 229: "summation",
	230: "parenlefttp", 231: "parenleftex", 232: "parenleftbt",
	233: "bracketlefttp", 234: "bracketleftex", 235: "bracketleftbt",
	236: "bracelefttp", 237: "braceleftmid", 238: "braceleftbt", 239: "braceex",
	241: "angleright", 242: "integral", 243: "integraltp", 244: "integralex",
	245: "integralbt", 246: "parenrighttp", 247: "parenrightex",
	248: "parenrightbt", 249: "bracketrighttp", 250: "bracketrightex",
	251: "bracketrightbt", 252: "bracerighttp", 253: "bracerightmid",
	254: "bracerightbt",
})

// glyphList maps glyph names to Unicode for every name the built-in
// encodings use, plus common extras. Other names go through the uniXXXX
// and uXXXX rules in glyphUnicode.
var glyphList = map[string]rune{
	"space": 0x0020, "exclam": 0x0021, "quotedbl": 0x0022, "numbersign": 0x0023,
	"dollar": 0x0024, "percent": 0x0025, "ampersand": 0x0026,
	"quotesingle": 0x0027, "parenleft": 0x0028, "parenright": 0x0029,
	"asterisk": 0x002A, "plus": 0x002B, "comma": 0x002C, "hyphen": 0x002D,
	"period": 0x002E, "slash": 0x002F, "zero": 0x0030, "one": 0x0031,
	"two": 0x0032, "three": 0x0033, "four": 0x0034, "five": 0x0035,
	"six": 0x0036, "seven": 0x0037, "eight": 0x0038, "nine": 0x0039,
	"colon": 0x003A, "semicolon": 0x003B, "less": 0x003C, "equal": 0x003D,
	"greater": 0x003E, "question": 0x003F, "at": 0x0040, "A": 0x0041,
	"B": 0x0042, "C": 0x0043, "D": 0x0044, "E": 0x0045, "F": 0x0046,
	"G": 0x0047, "H": 0x0048, "I": 0x0049, "J": 0x004A, "K": 0x004B,
	"L": 0x004C, "M": 0x004D, "N": 0x004E, "O": 0x004F, "P": 0x0050,
	"Q": 0x0051, "R": 0x0052, "S": 0x0053, "T": 0x0054, "U": 0x0055,
	"V": 0x0056, "W": 0x0057, "X": 0x0058, "Y": 0x0059, "Z": 0x005A,
	"bracketleft": 0x005B, "backslash": 0x005C, "bracketright": 0x005D,
	"asciicircum": 0x005E, "underscore": 0x005F, "grave": 0x0060, "a": 0x0061,
	"b": 0x0062, "c": 0x0063, "d": 0x0064, "e": 0x0065, "f": 0x0066,
	"g": 0x0067, "h": 0x0068, "i": 0x0069, "j": 0x006A, "k": 0x006B,
	"l": 0x006C, "m": 0x006D, "n": 0x006E, "o": 0x006F, "p": 0x0070,
	"q": 0x0071, "r": 0x0072, "s": 0x0073, "t": 0x0074, "u": 0x0075,
	"v": 0x0076, "w": 0x0077, "x": 0x0078, "y": 0x0079, "z": 0x007A,
	"braceleft": 0x007B, "bar": 0x007C, "braceright": 0x007D,
	"asciitilde": 0x007E, "nbspace": 0x00A0, "exclamdown": 0x00A1,
	"cent": 0x00A2, "sterling": 0x00A3, "currency": 0x00A4, "yen": 0x00A5,
	"brokenbar": 0x00A6, "section": 0x00A7, "dieresis": 0x00A8,
	"copyright": 0x00A9, "ordfeminine": 0x00AA, "guillemotleft": 0x00AB,
	"logicalnot": 0x00AC, "sfthyphen": 0x00AD, "registered": 0x00AE,
	"macron": 0x00AF, "degree": 0x00B0, "plusminus": 0x00B1,
	"twosuperior": 0x00B2, "threesuperior": 0x00B3, "acute": 0x00B4,
	"mu": 0x00B5, "paragraph": 0x00B6, "periodcentered": 0x00B7,
	"cedilla": 0x00B8, "onesuperior": 0x00B9, "ordmasculine": 0x00BA,
	"guillemotright": 0x00BB, "onequarter": 0x00BC, "onehalf": 0x00BD,
	"threequarters": 0x00BE, "questiondown": 0x00BF, "Agrave": 0x00C0,
	"Aacute": 0x00C1, "Acircumflex": 0x00C2, "Atilde": 0x00C3,
	"Adieresis": 0x00C4, "Aring": 0x00C5, "AE": 0x00C6, "Ccedilla": 0x00C7,
	"Egrave": 0x00C8, "Eacute": 0x00C9, "Ecircumflex": 0x00CA,
	"Edieresis": 0x00CB, "Igrave": 0x00CC, "Iacute": 0x00CD,
	"Icircumflex": 0x00CE, "Idieresis": 0x00CF, "Eth": 0x00D0, "Ntilde": 0x00D1,
	"Ograve": 0x00D2, "Oacute": 0x00D3, "Ocircumflex": 0x00D4, "Otilde": 0x00D5,
	"Odieresis": 0x00D6, "multiply": 0x00D7, "Oslash": 0x00D8, "Ugrave": 0x00D9,
	"Uacute": 0x00DA, "Ucircumflex": 0x00DB, "Udieresis": 0x00DC,
	"Yacute": 0x00DD, "Thorn": 0x00DE, "germandbls": 0x00DF, "agrave": 0x00E0,
	"aacute": 0x00E1, "acircumflex": 0x00E2, "atilde": 0x00E3,
	"adieresis": 0x00E4, "aring": 0x00E5, "ae": 0x00E6, "ccedilla": 0x00E7,
	"egrave": 0x00E8, "eacute": 0x00E9, "ecircumflex": 0x00EA,
	"edieresis": 0x00EB, "igrave": 0x00EC, "iacute": 0x00ED,
	"icircumflex": 0x00EE, "idieresis": 0x00EF, "eth": 0x00F0, "ntilde": 0x00F1,
	"ograve": 0x00F2, "oacute": 0x00F3, "ocircumflex": 0x00F4, "otilde": 0x00F5,
	"odieresis": 0x00F6, "divide": 0x00F7, "oslash": 0x00F8, "ugrave": 0x00F9,
	"uacute": 0x00FA, "ucircumflex": 0x00FB, "udieresis": 0x00FC,
	"yacute": 0x00FD, "thorn": 0x00FE, "ydieresis": 0x00FF, "Amacron": 0x0100,
	"amacron": 0x0101, "Abreve": 0x0102, "abreve": 0x0103, "Aogonek": 0x0104,
	"aogonek": 0x0105, "Cacute": 0x0106, "cacute": 0x0107, "Ccaron": 0x010C,
	"ccaron": 0x010D, "Dcroat": 0x0110, "dcroat": 0x0111, "Emacron": 0x0112,
	"emacron": 0x0113, "Edotaccent": 0x0116, "edotaccent": 0x0117,
	"Eogonek": 0x0118, "eogonek": 0x0119, "Ecaron": 0x011A, "ecaron": 0x011B,
	"Gbreve": 0x011E, "gbreve": 0x011F, "Gcommaaccent": 0x0122,
	"gcommaaccent": 0x0123, "Imacron": 0x012A, "imacron": 0x012B,
	"Iogonek": 0x012E, "iogonek": 0x012F, "Idotaccent": 0x0130,
	"dotlessi": 0x0131, "Kcommaaccent": 0x0136, "kcommaaccent": 0x0137,
	"Lacute": 0x0139, "lacute": 0x013A, "Lcommaaccent": 0x013B,
	"lcommaaccent": 0x013C, "Lcaron": 0x013D, "lcaron": 0x013E,
	"Lslash": 0x0141, "lslash": 0x0142, "Nacute": 0x0143, "nacute": 0x0144,
	"Ncommaaccent": 0x0145, "ncommaaccent": 0x0146, "Ncaron": 0x0147,
	"ncaron": 0x0148, "Omacron": 0x014C, "omacron": 0x014D,
	"Ohungarumlaut": 0x0150, "ohungarumlaut": 0x0151, "OE": 0x0152,
	"oe": 0x0153, "Racute": 0x0154, "racute": 0x0155, "Rcommaaccent": 0x0156,
	"rcommaaccent": 0x0157, "Rcaron": 0x0158, "rcaron": 0x0159,
	"Sacute": 0x015A, "sacute": 0x015B, "Scedilla": 0x015E, "scedilla": 0x015F,
	"Scaron": 0x0160, "scaron": 0x0161, "Tcommaaccent": 0x0162,
	"tcommaaccent": 0x0163, "Tcaron": 0x0164, "tcaron": 0x0165,
	"Umacron": 0x016A, "umacron": 0x016B, "Uring": 0x016E, "uring": 0x016F,
	"Uhungarumlaut": 0x0170, "uhungarumlaut": 0x0171, "Uogonek": 0x0172,
	"uogonek": 0x0173, "Ydieresis": 0x0178, "Zacute": 0x0179, "zacute": 0x017A,
	"Zdotaccent": 0x017B, "zdotaccent": 0x017C, "Zcaron": 0x017D,
	"zcaron": 0x017E, "florin": 0x0192, "dotlessj": 0x0237,
	"circumflex": 0x02C6, "caron": 0x02C7, "breve": 0x02D8, "dotaccent": 0x02D9,
	"ring": 0x02DA, "ogonek": 0x02DB, "tilde": 0x02DC, "hungarumlaut": 0x02DD,
	"Alpha": 0x0391, "Beta": 0x0392, "Gamma": 0x0393, "Epsilon": 0x0395,
	"Zeta": 0x0396, "Eta": 0x0397, "Theta": 0x0398, "Iota": 0x0399,
	"Kappa": 0x039A, "Lambda": 0x039B, "Mu": 0x039C, "Nu": 0x039D, "Xi": 0x039E,
	"Omicron": 0x039F, "Pi": 0x03A0, "Rho": 0x03A1, "Sigma": 0x03A3,
	"Tau": 0x03A4, "Upsilon": 0x03A5, "Phi": 0x03A6, "Chi": 0x03A7,
	"Psi": 0x03A8, "Omega": 0x03A9, "alpha": 0x03B1, "beta": 0x03B2,
	"gamma": 0x03B3, "delta": 0x03B4, "epsilon": 0x03B5, "zeta": 0x03B6,
	"eta": 0x03B7, "theta": 0x03B8, "iota": 0x03B9, "kappa": 0x03BA,
	"lambda": 0x03BB, "nu": 0x03BD, "xi": 0x03BE, "omicron": 0x03BF,
	"pi": 0x03C0, "rho": 0x03C1, "sigma1": 0x03C2, "sigma": 0x03C3,
	"tau": 0x03C4, "upsilon": 0x03C5, "phi": 0x03C6, "chi": 0x03C7,
	"psi": 0x03C8, "omega": 0x03C9, "theta1": 0x03D1, "Upsilon1": 0x03D2,
	"phi1": 0x03D5, "omega1": 0x03D6, "endash": 0x2013, "emdash": 0x2014,
	"quoteleft": 0x2018, "quoteright": 0x2019, "quotesinglbase": 0x201A,
	"quotedblleft": 0x201C, "quotedblright": 0x201D, "quotedblbase": 0x201E,
	"dagger": 0x2020, "daggerdbl": 0x2021, "bullet": 0x2022, "ellipsis": 0x2026,
	"perthousand": 0x2030, "minute": 0x2032, "second": 0x2033,
	"guilsinglleft": 0x2039, "guilsinglright": 0x203A, "fraction": 0x2044,
	"Euro": 0x20AC, "Ifraktur": 0x2111, "afii61289": 0x2113,
	"weierstrass": 0x2118, "Rfraktur": 0x211C, "trademark": 0x2122,
	"estimated": 0x212E, "aleph": 0x2135, "arrowleft": 0x2190,
	"arrowup": 0x2191, "arrowright": 0x2192, "arrowdown": 0x2193,
	"arrowboth": 0x2194, "carriagereturn": 0x21B5, "arrowdblleft": 0x21D0,
	"arrowdblup": 0x21D1, "arrowdblright": 0x21D2, "arrowdbldown": 0x21D3,
	"arrowdblboth": 0x21D4, "universal": 0x2200, "partialdiff": 0x2202,
	"existential": 0x2203, "emptyset": 0x2205, "Delta": 0x2206,
	"gradient": 0x2207, "element": 0x2208, "notelement": 0x2209,
	"suchthat": 0x220B, "product": 0x220F, "summation": 0x2211, "minus": 0x2212,
	"asteriskmath": 0x2217, "radical": 0x221A, "proportional": 0x221D,
	"infinity": 0x221E, "angle": 0x2220, "logicaland": 0x2227,
	"logicalor": 0x2228, "intersection": 0x2229, "union": 0x222A,
	"integral": 0x222B, "therefore": 0x2234, "similar": 0x223C,
	"congruent": 0x2245, "approxequal": 0x2248, "notequal": 0x2260,
	"equivalence": 0x2261, "lessequal": 0x2264, "greaterequal": 0x2265,
	"propersubset": 0x2282, "propersuperset": 0x2283, "notsubset": 0x2284,
	"reflexsubset": 0x2286, "reflexsuperset": 0x2287, "circleplus": 0x2295,
	"circlemultiply": 0x2297, "perpendicular": 0x22A5, "dotmath": 0x22C5,
	"integraltp": 0x2320, "integralbt": 0x2321, "angleleft": 0x2329,
	"angleright": 0x232A, "lozenge": 0x25CA, "spade": 0x2660, "club": 0x2663,
	"heart": 0x2665, "diamond": 0x2666, "commaaccent": 0xF6C3,
	"copyrightserif": 0xF6D9, "registerserif": 0xF6DA, "trademarkserif": 0xF6DB,
	"radicalex": 0xF8E5, "arrowvertex": 0xF8E6, "arrowhorizex": 0xF8E7,
	"registersans": 0xF8E8, "copyrightsans": 0xF8E9, "trademarksans": 0xF8EA,
	"parenlefttp": 0xF8EB, "parenleftex": 0xF8EC, "parenleftbt": 0xF8ED,
	"bracketlefttp": 0xF8EE, "bracketleftex": 0xF8EF, "bracketleftbt": 0xF8F0,
	"bracelefttp": 0xF8F1, "braceleftmid": 0xF8F2, "braceleftbt": 0xF8F3,
	"braceex": 0xF8F4, "integralex": 0xF8F5, "parenrighttp": 0xF8F6,
	"parenrightex": 0xF8F7, "parenrightbt": 0xF8F8, "bracketrighttp": 0xF8F9,
	"bracketrightex": 0xF8FA, "bracketrightbt": 0xF8FB, "bracerighttp": 0xF8FC,
	"bracerightmid": 0xF8FD, "bracerightbt": 0xF8FE, "apple": 0xF8FF,
	"ff": 0xFB00, "fi": 0xFB01, "fl": 0xFB02, "ffi": 0xFB03, "ffl": 0xFB04,
}
